package engine

import (
	"strings"
)

const (
	// NoModelAnswer is returned in place of an answer when no generator is configured.
	NoModelAnswer = "No model available to answer the query."

	noConnections = "No direct graph connections found."
)

type FusionMode string

const (
	// FusionOrdered removes duplicates and keeps first-seen order.
	FusionOrdered FusionMode = "ordered"
	// FusionSet collapses duplicates with no ordering guarantee.
	FusionSet FusionMode = "set"
)

/*
fuse merges graph-derived context with direct vector hits, dropping
duplicates. FusionOrdered keeps graph context first, then vector hits, each in
the order they were found.
*/
func fuse(mode FusionMode, extended, direct []string) []string {
	if mode == FusionSet {
		set := make(map[string]struct{}, len(extended)+len(direct))

		for _, line := range extended {
			set[line] = struct{}{}
		}

		for _, line := range direct {
			set[line] = struct{}{}
		}

		out := make([]string, 0, len(set))

		for line := range set {
			out = append(out, line)
		}

		return out
	}

	seen := make(map[string]struct{}, len(extended)+len(direct))
	out := make([]string, 0, len(extended)+len(direct))

	for _, lines := range [][]string{extended, direct} {
		for _, line := range lines {
			if _, ok := seen[line]; ok {
				continue
			}

			seen[line] = struct{}{}
			out = append(out, line)
		}
	}

	return out
}

// connectionsText renders the connections block, or its placeholder.
func connectionsText(connections []string) string {
	if len(connections) == 0 {
		return noConnections
	}

	return strings.Join(connections, "\n")
}

func buildPrompt(history, connections, combined, question string) string {
	var builder strings.Builder

	builder.WriteString("You are Nexus-Scholar. Answer the user's question using the provided Context and Knowledge Graph.\n\n")
	builder.WriteString("[Chat History]:\n")
	builder.WriteString(history)
	builder.WriteString("\n\n[Knowledge Graph Connections]:\n")
	builder.WriteString(connections)
	builder.WriteString("\n\n[Combined Context]:\n")
	builder.WriteString(combined)
	builder.WriteString("\n\n[User Question]:\n")
	builder.WriteString(question)
	builder.WriteString("\n\nInstruction: If the graph shows a connection, mention it to show how concepts are linked.\n")

	return builder.String()
}
