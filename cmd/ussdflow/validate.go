package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/ussdflow/pkg/definition"
)

var validateCmd = &cobra.Command{
	Use:   "validate <definition>...",
	Short: "Check definitions for consistency",
	Long: `Parses and compiles each definition, reporting every structural error
(dangling transitions, missing initial state, bad expressions) and lint warnings
such as unreachable states.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strict, _ := cmd.Flags().GetBool("strict")
		out := cmd.OutOrStdout()

		failed := 0
		for _, path := range args {
			def, err := definition.Load(path)
			if err != nil {
				fmt.Fprintf(out, "✗ %v\n", err)
				failed++
				continue
			}
			warnings := definition.Lint(def)
			for _, w := range warnings {
				fmt.Fprintf(out, "! %s: %s\n", path, w)
			}
			if strict && len(warnings) > 0 {
				failed++
				continue
			}
			fmt.Fprintf(out, "✓ %s (%s, %d states)\n", path, def.ServiceCode, len(def.States()))
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d definitions failed validation", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("strict", false, "Treat lint warnings as errors")
}
