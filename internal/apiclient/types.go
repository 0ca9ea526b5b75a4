package apiclient

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/vr-training-admin/internal/evaluation"
)

// EvaluationRow is one entry of an evaluation or training list. Status and Score
// are computed locally from the row's document.
type EvaluationRow struct {
	ID        string            `json:"id"`
	Kind      evaluation.Kind   `json:"kind"`
	Mode      evaluation.Mode   `json:"mode"`
	RawMode   string            `json:"rawMode,omitempty"`
	Status    evaluation.Status `json:"status"`
	Score     string            `json:"score"`
	UserName  string            `json:"userName,omitempty"`
	Module    string            `json:"module,omitempty"`
	StartTime *time.Time        `json:"startTime,omitempty"`
	EndTime   *time.Time        `json:"endTime,omitempty"`
	CreatedAt *time.Time        `json:"createdAt,omitempty"`
	Raw       json.RawMessage   `json:"-"`
}

// Page is one page of a list endpoint.
type Page struct {
	Data  []EvaluationRow `json:"data"`
	Total int             `json:"total"`
}

// BulkArchiveRequest is the body of POST /archive/bulkArchive.
type BulkArchiveRequest struct {
	Type string   `json:"type" validate:"required,oneof=evaluation training"`
	Data []string `json:"data" validate:"required,min=1,dive,required"`
}

type listEnvelope struct {
	Data  []json.RawMessage `json:"data"`
	Total evaluation.Number `json:"total"`
}

// decodeRow builds a row from a list entry. Entries that are not objects are rejected.
func decodeRow(raw json.RawMessage, kind evaluation.Kind) (EvaluationRow, error) {
	doc, err := evaluation.Decode(raw, kind)
	if err != nil {
		return EvaluationRow{}, err
	}
	rec := evaluation.Normalize(doc)

	var display struct {
		UserName   json.RawMessage `json:"userName"`
		User       json.RawMessage `json:"user"`
		ModuleName json.RawMessage `json:"moduleName"`
		Name       json.RawMessage `json:"name"`
		CreatedAt  json.RawMessage `json:"createdAt"`
	}
	_ = json.Unmarshal(raw, &display)

	row := EvaluationRow{
		ID:        rec.ID,
		Kind:      kind,
		Mode:      rec.Mode,
		RawMode:   doc.RawMode,
		Status:    rec.Status,
		Score:     rec.Score,
		UserName:  firstString(display.UserName, nested(display.User, "name")),
		Module:    firstString(display.ModuleName, display.Name),
		StartTime: rec.StartTime,
		EndTime:   rec.EndTime,
		Raw:       raw,
	}
	var created evaluation.Timestamp
	if len(display.CreatedAt) > 0 && json.Unmarshal(display.CreatedAt, &created) == nil {
		row.CreatedAt = created.Ptr()
	}
	return row, nil
}

func firstString(candidates ...json.RawMessage) string {
	for _, raw := range candidates {
		var s string
		if len(raw) > 0 && json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func nested(raw json.RawMessage, key string) json.RawMessage {
	var obj map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &obj) != nil {
		return nil
	}
	return obj[key]
}

// unwrapDocument returns the document inside a {"data": {...}} envelope, or raw
// itself when it is not wrapped.
func unwrapDocument(raw []byte) ([]byte, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		return nil, fmt.Errorf("response is not a JSON object")
	}
	if _, hasMode := top["mode"]; hasMode {
		return raw, nil
	}
	if inner, ok := top["data"]; ok {
		var obj map[string]json.RawMessage
		if json.Unmarshal(inner, &obj) == nil && obj != nil {
			return inner, nil
		}
	}
	return raw, nil
}
