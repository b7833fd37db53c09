package ui

import (
	"github.com/theapemachine/hivemind/pkg/engine"
	"github.com/theapemachine/hivemind/pkg/ingest"
)

// Message types for internal events
type answerMsg struct{ answer *engine.Answer }
type errorMsg struct{ err error }
type progressMsg struct{ progress ingest.Progress }
type ingestDoneMsg struct{}
