package domain

// Event is one inbound subscriber message.
type Event struct {
	SessionID   string `json:"sessionId"`
	Text        string `json:"text"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	// ServiceCode selects the definition; a gateway may resolve it from the dial string.
	ServiceCode string `json:"serviceCode,omitempty"`
	// USSDCode is the dial string as sent by the network, e.g. "*123#".
	USSDCode string `json:"ussdCode,omitempty"`
}

// Response is the outbound message for one event.
type Response struct {
	SessionID  string `json:"sessionId"`
	Message    string `json:"message"`
	Terminated bool   `json:"terminated"`
}
