package evaluation

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document is a raw evaluation or training document as fetched from the API.
// Every nested field is optional; absent or malformed parts decode to zero values.
type Document struct {
	ID             string
	Kind           Kind
	Mode           Mode // empty when the tag is missing or unknown
	RawMode        string
	Status         string
	Score          Number
	PassPercentage Number
	StartTime      *time.Time
	EndTime        *time.Time
	Dump           Dump
	Answers        Answers

	RawDump    json.RawMessage
	RawAnswers json.RawMessage
}

// Dump is the authored definition of the evaluation or training content.
type Dump struct {
	MCQs            []json.RawMessage
	QuestionActions []QuestionAction
	TimeBased       TimeLimits
	PassingCriteria PassingCriteria
	LifeCycle       LifeCycleDump
}

// QuestionAction is one weighted item of a question-action evaluation.
type QuestionAction struct {
	Weightage Number `json:"weightage"`
}

// TimeLimits are the medal thresholds of a timed task.
type TimeLimits struct {
	GoldTimeLimit   Number `json:"goldTimeLimit"`
	SilverTimeLimit Number `json:"silverTimeLimit"`
	BronzeTimeLimit Number `json:"bronzeTimeLimit"`
	MistakesAllowed Number `json:"mistakesAllowed"`
}

// PassingCriteria holds pass thresholds shared by the scored modes.
type PassingCriteria struct {
	PassPercentage  Number `json:"passPercentage"`
	MistakesAllowed Number `json:"mistakesAllowed"`
}

// LifeCycleDump is the chapter/moment tree of JSON life-cycle content together
// with its server-computed totals.
type LifeCycleDump struct {
	Status      string
	TotalScored Number
	TotalMark   Number
	StartTime   *time.Time
	EndTime     *time.Time
	Chapters    []ChapterDef
}

// ChapterDef is an authored chapter.
type ChapterDef struct {
	ChapterIndex Number      `json:"chapterIndex"`
	Name         string      `json:"name,omitempty"`
	Moments      []MomentDef `json:"moments"`
}

// MomentDef is an authored moment inside a chapter.
type MomentDef struct {
	ChapterIndex Number     `json:"chapterIndex"`
	MomentIndex  Number     `json:"momentIndex"`
	Name         string     `json:"name,omitempty"`
	StartTime    *Timestamp `json:"startTime,omitempty"`
	EndTime      *Timestamp `json:"endTime,omitempty"`
}

// Answers are the responses recorded during an attempt.
type Answers struct {
	TimeBased TimeResult
	LifeCycle []AnswerEvents
}

// TimeResult is the outcome of a timed task.
type TimeResult struct {
	TimeTaken Number `json:"timeTaken"`
	Mistakes  Number `json:"mistakes"`
	Score     string `json:"score"`
}

// AnswerEvents are the events recorded for one chapter/moment pair.
type AnswerEvents struct {
	ChapterIndex Number            `json:"chapterIndex"`
	MomentIndex  Number            `json:"momentIndex"`
	StartTime    *Timestamp        `json:"startTime,omitempty"`
	EndTime      *Timestamp        `json:"endTime,omitempty"`
	Events       []json.RawMessage `json:"events"`
}

// Decode parses a raw document. Only input that is not a JSON object is an error;
// everything inside degrades to zero values.
func Decode(data []byte, kind Kind) (*Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("failed to decode %s document: %w", kind, err)
	}
	if top == nil {
		return nil, fmt.Errorf("failed to decode %s document: not an object", kind)
	}

	doc := &Document{
		ID:      text(top["_id"]),
		Kind:    kind,
		RawMode: text(top["mode"]),
		Status:  text(top["status"]),
	}
	if doc.ID == "" {
		doc.ID = text(top["id"])
	}
	if m, err := ParseMode(doc.RawMode); err == nil {
		doc.Mode = m
	}

	lenient(top["score"], &doc.Score)
	lenient(top["passPercentage"], &doc.PassPercentage)
	doc.StartTime = timeField(top["startTime"])
	doc.EndTime = timeField(top["endTime"])

	doc.RawDump = top["evaluationDump"]
	if len(doc.RawDump) == 0 {
		doc.RawDump = top["trainingDump"]
	}
	doc.RawAnswers = top["answers"]

	doc.Dump = decodeDump(doc.RawDump)
	doc.Answers = decodeAnswers(doc.RawAnswers)
	return doc, nil
}

func decodeDump(raw json.RawMessage) Dump {
	fields := object(raw)

	var d Dump
	lenient(fields["mcqs"], &d.MCQs)
	d.QuestionActions = list[QuestionAction](fields["questionActions"])
	lenient(fields["timeBased"], &d.TimeBased)
	lenient(fields["passingCriteria"], &d.PassingCriteria)

	lc := object(fields["jsonLifeCycle"])
	d.LifeCycle = LifeCycleDump{
		Status:    text(lc["status"]),
		StartTime: timeField(lc["startTime"]),
		EndTime:   timeField(lc["endTime"]),
		Chapters:  list[ChapterDef](lc["chapters"]),
	}
	lenient(lc["totalScored"], &d.LifeCycle.TotalScored)
	lenient(lc["totalMark"], &d.LifeCycle.TotalMark)
	return d
}

func decodeAnswers(raw json.RawMessage) Answers {
	fields := object(raw)

	var a Answers
	lenient(fields["timeBased"], &a.TimeBased)
	a.LifeCycle = list[AnswerEvents](fields["jsonLifeCycle"])
	return a
}

func timeField(raw json.RawMessage) *time.Time {
	var ts Timestamp
	lenient(raw, &ts)
	return ts.Ptr()
}
