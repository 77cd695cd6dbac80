// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/veritas/internal/core/domain"
)

// AnswerRequested is a command to answer a question.
type AnswerRequested struct {
	Query string
}

// AnswerCompleted carries the answer, or the pipeline error, back to the model.
type AnswerCompleted struct {
	Query    string
	Response domain.AnswerResponse
	Err      error
}

// Mode identifies what the app is showing.
type Mode int

const (
	// ModeInput waits for a question.
	ModeInput Mode = iota
	// ModeLoading waits for the answer pipeline.
	ModeLoading
	// ModeAnswer shows the last answer.
	ModeAnswer
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeInput:
		return "input"
	case ModeLoading:
		return "loading"
	case ModeAnswer:
		return "answer"
	default:
		return "unknown"
	}
}
