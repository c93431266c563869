// Command ussdflow serves, validates and simulates USSD service definitions.
package main

func main() {
	Execute()
}
