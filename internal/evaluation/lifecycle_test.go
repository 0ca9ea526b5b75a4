package evaluation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chapterDefs() []ChapterDef {
	return []ChapterDef{{
		ChapterIndex: Num(0),
		Moments: []MomentDef{
			{MomentIndex: Num(0)},
			{MomentIndex: Num(1)},
		},
	}}
}

func TestMergeChaptersWithAnswers_MatchesByIndexPair(t *testing.T) {
	e1 := json.RawMessage(`{"id":"E1"}`)
	answers := []AnswerEvents{
		{ChapterIndex: Num(3), MomentIndex: Num(0), Events: []json.RawMessage{json.RawMessage(`{"id":"other"}`)}},
		{ChapterIndex: Num(0), MomentIndex: Num(1), Events: []json.RawMessage{e1}},
	}

	merged := MergeChaptersWithAnswers(chapterDefs(), answers)
	require.Len(t, merged, 1)
	require.Len(t, merged[0].Moments, 2)

	assert.Empty(t, merged[0].Moments[0].Answers)
	assert.NotNil(t, merged[0].Moments[0].Answers)
	assert.Equal(t, []json.RawMessage{e1}, merged[0].Moments[1].Answers)
}

func TestMergeChaptersWithAnswers_OrderIndependent(t *testing.T) {
	a := AnswerEvents{ChapterIndex: Num(0), MomentIndex: Num(0), Events: []json.RawMessage{json.RawMessage(`"a"`)}}
	b := AnswerEvents{ChapterIndex: Num(0), MomentIndex: Num(1), Events: []json.RawMessage{json.RawMessage(`"b"`)}}

	forward := MergeChaptersWithAnswers(chapterDefs(), []AnswerEvents{a, b})
	backward := MergeChaptersWithAnswers(chapterDefs(), []AnswerEvents{b, a})
	assert.Equal(t, forward, backward)
}

func TestMergeChaptersWithAnswers_TotalTimeTaken(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)

	chapters := []ChapterDef{{
		ChapterIndex: Num(1),
		Moments: []MomentDef{
			{MomentIndex: Num(0), StartTime: At(start), EndTime: At(end)},
			{MomentIndex: Num(1), StartTime: At(start)},
			{MomentIndex: Num(2)},
		},
	}}
	answers := []AnswerEvents{
		{ChapterIndex: Num(1), MomentIndex: Num(2), StartTime: At(start), EndTime: At(start.Add(2 * time.Second))},
	}

	merged := MergeChaptersWithAnswers(chapters, answers)
	moments := merged[0].Moments

	require.NotNil(t, moments[0].TotalTimeTaken)
	assert.Equal(t, int64(90000), *moments[0].TotalTimeTaken)
	assert.Nil(t, moments[1].TotalTimeTaken)
	require.NotNil(t, moments[2].TotalTimeTaken)
	assert.Equal(t, int64(2000), *moments[2].TotalTimeTaken)
	assert.Equal(t, 1, moments[2].ChapterIndex)
	assert.NotNil(t, moments[2].Answers)
}

func TestMergeChaptersWithAnswers_FirstDuplicateWins(t *testing.T) {
	answers := []AnswerEvents{
		{ChapterIndex: Num(0), MomentIndex: Num(0), Events: []json.RawMessage{json.RawMessage(`1`)}},
		{ChapterIndex: Num(0), MomentIndex: Num(0), Events: []json.RawMessage{json.RawMessage(`2`)}},
	}
	merged := MergeChaptersWithAnswers(chapterDefs(), answers)
	assert.Equal(t, []json.RawMessage{json.RawMessage(`1`)}, merged[0].Moments[0].Answers)
}

func TestMergeChaptersWithAnswers_Empty(t *testing.T) {
	assert.Empty(t, MergeChaptersWithAnswers(nil, nil))
	assert.NotNil(t, MergeChaptersWithAnswers(nil, nil))
}

func TestMergeChaptersWithAnswers_FromDecodedDocument(t *testing.T) {
	doc, err := Decode([]byte(`{
		"mode": "jsonLifeCycle",
		"evaluationDump": {"jsonLifeCycle": {"chapters": [
			{"chapterIndex": 0, "moments": [{"momentIndex": 0}, {"momentIndex": 1}]},
			"not a chapter"
		]}},
		"answers": {"jsonLifeCycle": [
			{"chapterIndex": 0, "momentIndex": 1, "events": ["E1"], "startTime": 1714557600000, "endTime": 1714557605000},
			42
		]}
	}`), KindTraining)
	require.NoError(t, err)

	a, ok := doc.Attempt()
	require.True(t, ok)
	lc := a.(LifeCycleAttempt)

	require.Len(t, lc.Chapters, 1)
	assert.Empty(t, lc.Chapters[0].Moments[0].Answers)
	assert.Equal(t, []json.RawMessage{json.RawMessage(`"E1"`)}, lc.Chapters[0].Moments[1].Answers)
	require.NotNil(t, lc.Chapters[0].Moments[1].TotalTimeTaken)
	assert.Equal(t, int64(5000), *lc.Chapters[0].Moments[1].TotalTimeTaken)
}

func TestMergeChaptersWithAnswers_ResolvesMomentKeys(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		chapter  int
		moment   int
		expected []json.RawMessage
	}{
		{
			name: "moments carry both indices",
			body: `{
				"mode": "jsonLifeCycle",
				"evaluationDump": {"jsonLifeCycle": {"chapters": [
					{"moments": [{"chapterIndex": 0, "momentIndex": 0}, {"chapterIndex": 0, "momentIndex": 1}]}
				]}},
				"answers": {"jsonLifeCycle": [{"chapterIndex": 0, "momentIndex": 1, "events": ["E1"]}]}
			}`,
			chapter:  0,
			moment:   1,
			expected: []json.RawMessage{json.RawMessage(`"E1"`)},
		},
		{
			name: "moment chapter index under an unindexed chapter",
			body: `{
				"mode": "jsonLifeCycle",
				"evaluationDump": {"jsonLifeCycle": {"chapters": [
					{"moments": [{"chapterIndex": 2, "momentIndex": 0}]}
				]}},
				"answers": {"jsonLifeCycle": [{"chapterIndex": 2, "momentIndex": 0, "events": ["E1"]}]}
			}`,
			chapter:  0,
			moment:   0,
			expected: []json.RawMessage{json.RawMessage(`"E1"`)},
		},
		{
			name: "positional fallback for the second chapter",
			body: `{
				"mode": "jsonLifeCycle",
				"evaluationDump": {"jsonLifeCycle": {"chapters": [
					{"moments": [{}, {}]},
					{"moments": [{}]}
				]}},
				"answers": {"jsonLifeCycle": [
					{"chapterIndex": 1, "momentIndex": 0, "events": ["E2"]},
					{"chapterIndex": 0, "momentIndex": 1, "events": ["E3"]}
				]}
			}`,
			chapter:  1,
			moment:   0,
			expected: []json.RawMessage{json.RawMessage(`"E2"`)},
		},
		{
			name: "positional fallback for the second moment",
			body: `{
				"mode": "jsonLifeCycle",
				"evaluationDump": {"jsonLifeCycle": {"chapters": [
					{"moments": [{}, {}]},
					{"moments": [{}]}
				]}},
				"answers": {"jsonLifeCycle": [
					{"chapterIndex": 1, "momentIndex": 0, "events": ["E2"]},
					{"chapterIndex": 0, "momentIndex": 1, "events": ["E3"]}
				]}
			}`,
			chapter:  0,
			moment:   1,
			expected: []json.RawMessage{json.RawMessage(`"E3"`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode([]byte(tt.body), KindTraining)
			require.NoError(t, err)

			a, ok := doc.Attempt()
			require.True(t, ok)
			lc := a.(LifeCycleAttempt)

			require.Greater(t, len(lc.Chapters), tt.chapter)
			require.Greater(t, len(lc.Chapters[tt.chapter].Moments), tt.moment)
			assert.Equal(t, tt.expected, lc.Chapters[tt.chapter].Moments[tt.moment].Answers)
		})
	}
}

func TestMergeChaptersWithAnswers_UnmatchedMomentsStayEmpty(t *testing.T) {
	doc, err := Decode([]byte(`{
		"mode": "jsonLifeCycle",
		"evaluationDump": {"jsonLifeCycle": {"chapters": [
			{"moments": [{"chapterIndex": 0, "momentIndex": 0}, {"chapterIndex": 0, "momentIndex": 1}]}
		]}},
		"answers": {"jsonLifeCycle": [{"chapterIndex": 0, "momentIndex": 1, "events": ["E1"]}]}
	}`), KindTraining)
	require.NoError(t, err)

	a, ok := doc.Attempt()
	require.True(t, ok)
	lc := a.(LifeCycleAttempt)

	require.Len(t, lc.Chapters, 1)
	assert.Equal(t, 0, lc.Chapters[0].ChapterIndex)
	require.NotNil(t, lc.Chapters[0].Moments[0].Answers)
	assert.Empty(t, lc.Chapters[0].Moments[0].Answers)
}
