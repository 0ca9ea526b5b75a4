package evaluation

import (
	"encoding/json"
	"time"
)

// Chapter is a chapter of life-cycle content with its recorded answers attached.
type Chapter struct {
	ChapterIndex int      `json:"chapterIndex"`
	Name         string   `json:"name,omitempty"`
	Moments      []Moment `json:"moments"`
}

// Moment is a moment with the answer events recorded for it.
type Moment struct {
	ChapterIndex int               `json:"chapterIndex"`
	MomentIndex  int               `json:"momentIndex"`
	Name         string            `json:"name,omitempty"`
	StartTime    *time.Time        `json:"startTime,omitempty"`
	EndTime      *time.Time        `json:"endTime,omitempty"`
	Answers      []json.RawMessage `json:"answers"`
	// TotalTimeTaken is endTime - startTime in milliseconds, nil unless both are known.
	TotalTimeTaken *int64 `json:"totalTimeTaken,omitempty"`
}

type momentKey struct {
	chapter int
	moment  int
}

// MergeChaptersWithAnswers attaches the events recorded for each (chapterIndex,
// momentIndex) pair to the matching moment. Matching is by index pair, so the order
// of answers does not matter. Moments without answers get an empty list. When
// several entries share a pair the first one wins.
func MergeChaptersWithAnswers(chapters []ChapterDef, answers []AnswerEvents) []Chapter {
	byKey := make(map[momentKey]AnswerEvents, len(answers))
	for _, a := range answers {
		k := momentKey{chapter: a.ChapterIndex.Int(-1), moment: a.MomentIndex.Int(-1)}
		if _, seen := byKey[k]; !seen {
			byKey[k] = a
		}
	}

	out := make([]Chapter, 0, len(chapters))
	for i, ch := range chapters {
		chapterIndex := resolveChapterIndex(ch, i)
		merged := Chapter{
			ChapterIndex: chapterIndex,
			Name:         ch.Name,
			Moments:      make([]Moment, 0, len(ch.Moments)),
		}

		for j, m := range ch.Moments {
			moment := Moment{
				ChapterIndex: m.ChapterIndex.Int(chapterIndex),
				MomentIndex:  m.MomentIndex.Int(j),
				Name:         m.Name,
				StartTime:    m.StartTime.Ptr(),
				EndTime:      m.EndTime.Ptr(),
				Answers:      []json.RawMessage{},
			}

			if a, ok := byKey[momentKey{chapter: moment.ChapterIndex, moment: moment.MomentIndex}]; ok {
				if a.Events != nil {
					moment.Answers = a.Events
				}
				if start := a.StartTime.Ptr(); start != nil {
					moment.StartTime = start
				}
				if end := a.EndTime.Ptr(); end != nil {
					moment.EndTime = end
				}
			}

			if moment.StartTime != nil && moment.EndTime != nil {
				ms := moment.EndTime.Sub(*moment.StartTime).Milliseconds()
				moment.TotalTimeTaken = &ms
			}
			merged.Moments = append(merged.Moments, moment)
		}
		out = append(out, merged)
	}
	return out
}

// resolveChapterIndex prefers the chapter's own index, then the index carried by
// its first indexed moment, then the chapter's position.
func resolveChapterIndex(ch ChapterDef, position int) int {
	if ch.ChapterIndex.Valid {
		return ch.ChapterIndex.Int(position)
	}
	for _, m := range ch.Moments {
		if m.ChapterIndex.Valid {
			return m.ChapterIndex.Int(position)
		}
	}
	return position
}
