package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/ussdflow/internal/presentation/graph"
	"github.com/aretw0/ussdflow/pkg/definition"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <definition>",
	Short: "Export the automaton as a Mermaid diagram",
	Long:  `Loads a definition and outputs a Mermaid diagram (graph TD) of its states and transitions.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := definition.Load(args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if current, _ := cmd.Flags().GetString("current"); current != "" {
			if _, ok := def.State(current); !ok {
				return fmt.Errorf("state %q not found in %s", current, def.ServiceCode)
			}
			overlay = &graph.GraphOverlay{CurrentState: current}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("current", "", "Highlight a state")
}
