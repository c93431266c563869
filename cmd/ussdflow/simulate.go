package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/ussdflow/internal/cli"
	"github.com/aretw0/ussdflow/internal/config"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <definition>",
	Short: "Play a dialogue against a definition from the terminal",
	Long: `Loads a single definition and plays the subscriber side on stdin/stdout.
Actions call the real backend declared in apiConfig. Type /quit to hang up.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// The console owns stdout; a simulation never touches a shared store.
		cfg.Definitions = []string{args[0]}
		cfg.Store.Backend = config.StoreMemory
		cfg.Store.EncryptionKey, cfg.Store.FallbackKeys = "", nil
		logger := newLogger(cfg.Log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stack, err := cli.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer stack.Close()

		def := stack.Gateway.Services()[0]
		phone, _ := cmd.Flags().GetString("phone")
		dial, _ := cmd.Flags().GetString("dial")
		if dial == "" {
			dial = def.USSDCode
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "--- %s (%s) ---\n", def.ServiceName, def.ServiceCode)
		return cli.RunConsole(ctx, stack.Gateway, cmd.InOrStdin(), out, cli.ConsoleOptions{
			ServiceCode: def.ServiceCode,
			PhoneNumber: phone,
			Dial:        dial,
		})
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().String("phone", "+00000000000", "Subscriber phone number")
	simulateCmd.Flags().String("dial", "", "Dial string of the first event (defaults to the definition's ussdCode)")
}
