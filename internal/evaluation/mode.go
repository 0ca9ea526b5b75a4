// Package evaluation turns raw evaluation and training documents into display-ready
// results: pass/fail status, a formatted score and, for life-cycle content, the
// chapter/moment tree merged with the recorded answer events.
package evaluation

import (
	"fmt"
	"strings"
)

// Mode selects which scoring and display rules apply.
type Mode string

// Supported modes.
const (
	ModeMCQ            Mode = "mcq"
	ModeTime           Mode = "time"
	ModeQuestionAction Mode = "questionAction"
	ModeJSONLifeCycle  Mode = "jsonLifeCycle"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeMCQ, ModeTime, ModeQuestionAction, ModeJSONLifeCycle}

// ParseMode resolves a mode tag, ignoring case.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown evaluation mode %q", s)
}

// Kind distinguishes evaluations from trainings.
type Kind string

// Document kinds.
const (
	KindEvaluation Kind = "evaluation"
	KindTraining   Kind = "training"
)

// Status is the computed outcome of an attempt.
type Status string

// Evaluation statuses.
const (
	StatusPending Status = "Pending"
	StatusPass    Status = "Pass"
	StatusFail    Status = "Fail"
)

// Training statuses.
const (
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

// NoScore is shown while a score cannot be computed.
const NoScore = "-"
