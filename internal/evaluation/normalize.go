package evaluation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Record is a normalized, display-ready evaluation or training result.
type Record struct {
	ID             string          `json:"id"`
	Kind           Kind            `json:"kind"`
	Mode           Mode            `json:"mode"`
	Status         Status          `json:"status"`
	Score          string          `json:"score"`
	StartTime      *time.Time      `json:"startTime,omitempty"`
	EndTime        *time.Time      `json:"endTime,omitempty"`
	EvaluationDump json.RawMessage `json:"evaluationDump,omitempty"`
	Answers        json.RawMessage `json:"answers,omitempty"`
	Chapters       []Chapter       `json:"chapters,omitempty"`
}

// Evaluate computes the evaluation status and score string of an attempt.
func Evaluate(a Attempt) (Status, string) {
	switch a := a.(type) {
	case MCQAttempt:
		if !a.Completed {
			return StatusPending, NoScore
		}
		passMark := float64(a.Questions) * (a.PassPercentage / 100)
		return passFail(a.Score >= passMark), fmt.Sprintf("%s / %d", formatNumber(a.Score), a.Questions)

	case QuestionActionAttempt:
		if !a.Completed {
			return StatusPending, NoScore
		}
		passMark := a.TotalWeightage * (a.PassPercentage / 100)
		// no spaces around the slash, unlike mcq; existing consumers compare this string
		return passFail(a.Score >= passMark), formatNumber(a.Score) + "/" + formatNumber(a.TotalWeightage)

	case TimeAttempt:
		if !a.Completed {
			return StatusPending, NoScore
		}
		score := NoScore
		if outcome := strings.TrimSpace(a.Outcome); outcome != "" {
			score = capitalize(outcome)
		}
		return passFail(a.TimeTaken < a.BronzeTimeLimit && a.Mistakes <= a.MistakesAllowed), score

	case LifeCycleAttempt:
		score := formatNumber(a.TotalScored) + " / " + formatNumber(a.TotalMark)
		if !a.Completed {
			return StatusPending, score
		}
		return lifeCycleStatus(a.Status), score
	}
	return StatusPending, NoScore
}

// capitalize upper-cases the first letter of s and leaves the rest untouched.
func capitalize(s string) string {
	_, size := utf8.DecodeRuneInString(s)
	return cases.Upper(language.Und).String(s[:size]) + s[size:]
}

// ComputeStatusAndScore returns the status and score string for doc. Trainings
// report ongoing/completed instead of Pending/Pass/Fail. Unknown modes and nil
// documents are pending with no score.
func ComputeStatusAndScore(doc *Document) (Status, string) {
	if doc == nil {
		return StatusPending, NoScore
	}

	status, score := StatusPending, NoScore
	if a, ok := doc.Attempt(); ok {
		status, score = Evaluate(a)
	}

	if doc.Kind == KindTraining {
		return trainingStatus(status), score
	}
	return status, score
}

// Normalize builds the display record for doc.
func Normalize(doc *Document) Record {
	if doc == nil {
		return Record{Status: StatusPending, Score: NoScore}
	}

	status, score := ComputeStatusAndScore(doc)
	rec := Record{
		ID:             doc.ID,
		Kind:           doc.Kind,
		Mode:           doc.Mode,
		Status:         status,
		Score:          score,
		StartTime:      doc.StartTime,
		EndTime:        doc.EndTime,
		EvaluationDump: doc.RawDump,
		Answers:        doc.RawAnswers,
	}
	if a, ok := doc.Attempt(); ok {
		if lc, ok := a.(LifeCycleAttempt); ok {
			rec.Chapters = lc.Chapters
		}
	}
	return rec
}

func passFail(pass bool) Status {
	if pass {
		return StatusPass
	}
	return StatusFail
}

func lifeCycleStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return StatusPending
	case "pass", "passed":
		return StatusPass
	case "fail", "failed":
		return StatusFail
	case "pending":
		return StatusPending
	default:
		return Status(s)
	}
}

func trainingStatus(s Status) Status {
	if s == StatusPending {
		return StatusOngoing
	}
	return StatusCompleted
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
