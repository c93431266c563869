package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedStates []string
	CurrentState  string
}

// endNodeID names the synthetic terminal node drawn for transitions to END.
const endNodeID = "__end__"

// GenerateMermaid produces a Mermaid flowchart of a definition.
// It applies semantic styling:
// - Initial: ((Circle))
// - Processing: [[Subroutine]]
// - Input/Menu: [/Parallelogram/]
// - End: ([Stadium])
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(def *domain.Definition, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	usesEnd := false
	for _, state := range def.States() {
		base := state.Base()
		safeID := sanitizeMermaidID(base.ID)

		opener, closer := "[", "]"
		switch {
		case base.Initial:
			opener, closer = "((", "))"
		case state.Kind() == domain.StateProcessing:
			opener, closer = "[[", "]]"
		case domain.AwaitsInput(state):
			opener, closer = "[/", "/]"
		case state.Kind() == domain.StateEnd:
			opener, closer = "([", "])"
		}

		label := base.ID
		if p, ok := state.(*domain.ProcessingState); ok {
			// Annotate with the call
			label = fmt.Sprintf("%s <br/> %s %s", base.ID, p.Action.Method, escapeLabel(p.Action.Endpoint))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		for _, t := range base.Transitions {
			target := sanitizeMermaidID(t.NextState)
			if t.NextState == domain.EndStateID {
				target = endNodeID
				usesEnd = true
			}
			if text := edgeLabel(t); text != "" {
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, text, target)
			} else {
				fmt.Fprintf(&sb, "    %s --> %s\n", safeID, target)
			}
		}
	}
	if usesEnd {
		fmt.Fprintf(&sb, "    %s((\"%s\"))\n", endNodeID, domain.EndStateID)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedStates {
			if _, ok := def.State(id); !ok {
				continue
			}
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentState != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentState))
		}
	}

	return sb.String()
}

// edgeLabel joins the literal input and the guard of t.
func edgeLabel(t domain.Transition) string {
	var parts []string
	if !t.MatchesAnyInput() {
		parts = append(parts, t.Input)
	}
	if t.RawCondition != "" {
		parts = append(parts, t.RawCondition)
	}
	return escapeLabel(strings.Join(parts, " / "))
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
