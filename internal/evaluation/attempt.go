package evaluation

// Attempt is the mode-specific view of a document needed to score it. The
// concrete types are MCQAttempt, TimeAttempt, QuestionActionAttempt and
// LifeCycleAttempt; the set is closed.
type Attempt interface {
	Mode() Mode
	isAttempt()
}

// MCQAttempt is a multiple-choice attempt.
type MCQAttempt struct {
	Completed      bool
	Score          float64
	Questions      int
	PassPercentage float64
}

// QuestionActionAttempt is a weighted question-action attempt.
type QuestionActionAttempt struct {
	Completed      bool
	Score          float64
	TotalWeightage float64
	PassPercentage float64
}

// TimeAttempt is a timed-task attempt.
type TimeAttempt struct {
	Completed       bool
	TimeTaken       float64
	BronzeTimeLimit float64
	Mistakes        float64
	MistakesAllowed float64
	Outcome         string
}

// LifeCycleAttempt is a JSON life-cycle attempt. Its completion is driven by the
// end time inside the dump, not by the document's own end time.
type LifeCycleAttempt struct {
	Completed   bool
	Status      string
	TotalScored float64
	TotalMark   float64
	Chapters    []Chapter
}

func (MCQAttempt) Mode() Mode            { return ModeMCQ }
func (QuestionActionAttempt) Mode() Mode { return ModeQuestionAction }
func (TimeAttempt) Mode() Mode           { return ModeTime }
func (LifeCycleAttempt) Mode() Mode      { return ModeJSONLifeCycle }

func (MCQAttempt) isAttempt()            {}
func (QuestionActionAttempt) isAttempt() {}
func (TimeAttempt) isAttempt()           {}
func (LifeCycleAttempt) isAttempt()      {}

// Attempt builds the mode-specific attempt. It returns false for an unknown mode.
func (d *Document) Attempt() (Attempt, bool) {
	if d == nil {
		return nil, false
	}
	completed := d.EndTime != nil

	switch d.Mode {
	case ModeMCQ:
		return MCQAttempt{
			Completed:      completed,
			Score:          d.Score.Or(0),
			Questions:      len(d.Dump.MCQs),
			PassPercentage: d.passPercentage(),
		}, true
	case ModeQuestionAction:
		total := 0.0
		for _, qa := range d.Dump.QuestionActions {
			total += qa.Weightage.Or(0)
		}
		return QuestionActionAttempt{
			Completed:      completed,
			Score:          d.Score.Or(0),
			TotalWeightage: total,
			PassPercentage: d.passPercentage(),
		}, true
	case ModeTime:
		allowed := d.Dump.TimeBased.MistakesAllowed
		if !allowed.Valid {
			allowed = d.Dump.PassingCriteria.MistakesAllowed
		}
		return TimeAttempt{
			Completed:       completed,
			TimeTaken:       d.Answers.TimeBased.TimeTaken.Or(0),
			BronzeTimeLimit: d.Dump.TimeBased.BronzeTimeLimit.Or(0),
			Mistakes:        d.Answers.TimeBased.Mistakes.Or(0),
			MistakesAllowed: allowed.Or(0),
			Outcome:         d.Answers.TimeBased.Score,
		}, true
	case ModeJSONLifeCycle:
		lc := d.Dump.LifeCycle
		return LifeCycleAttempt{
			Completed:   lc.EndTime != nil,
			Status:      lc.Status,
			TotalScored: lc.TotalScored.Or(0),
			TotalMark:   lc.TotalMark.Or(0),
			Chapters:    MergeChaptersWithAnswers(lc.Chapters, d.Answers.LifeCycle),
		}, true
	default:
		return nil, false
	}
}

func (d *Document) passPercentage() float64 {
	if d.Dump.PassingCriteria.PassPercentage.Valid {
		return d.Dump.PassingCriteria.PassPercentage.Value
	}
	return d.PassPercentage.Or(0)
}
