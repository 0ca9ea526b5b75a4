package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/vr-training-admin/internal/evaluation"
	"github.com/jonathan/vr-training-admin/internal/grid"
)

// endpoints of one record kind.
type endpoints struct {
	list    string
	detail  string
	archive string
}

var kindEndpoints = map[evaluation.Kind]endpoints{
	evaluation.KindEvaluation: {list: "/evaluation/all", detail: "/evaluation/", archive: "/evaluation/archive/"},
	evaluation.KindTraining:   {list: "/training/", detail: "/training/", archive: "/training/archive/"},
}

func endpointsFor(kind evaluation.Kind) (endpoints, error) {
	ep, ok := kindEndpoints[kind]
	if !ok {
		return endpoints{}, &ValidationError{Field: "type", Message: "unknown record type " + string(kind)}
	}
	return ep, nil
}

// List fetches one page of evaluations or trainings.
func (c *Client) List(ctx context.Context, kind evaluation.Kind, params grid.Params) (*Page, error) {
	ep, err := endpointsFor(kind)
	if err != nil {
		return nil, err
	}

	var envelope listEnvelope
	if err := c.do(ctx, http.MethodGet, ep.list, params.Query(), nil, &envelope); err != nil {
		return nil, err
	}

	page := &Page{
		Data:  make([]EvaluationRow, 0, len(envelope.Data)),
		Total: envelope.Total.Int(len(envelope.Data)),
	}
	for i, raw := range envelope.Data {
		row, err := decodeRow(raw, kind)
		if err != nil {
			c.log.Debug().Err(err).Int("index", i).Str("kind", string(kind)).Msg("skipping malformed row")
			continue
		}
		page.Data = append(page.Data, row)
	}
	return page, nil
}

// ListEvaluations fetches one page of evaluations.
func (c *Client) ListEvaluations(ctx context.Context, params grid.Params) (*Page, error) {
	return c.List(ctx, evaluation.KindEvaluation, params)
}

// ListTrainings fetches one page of trainings.
func (c *Client) ListTrainings(ctx context.Context, params grid.Params) (*Page, error) {
	return c.List(ctx, evaluation.KindTraining, params)
}

// Get fetches a single document with its dump and answers.
func (c *Client) Get(ctx context.Context, kind evaluation.Kind, id string) (*evaluation.Document, error) {
	ep, err := endpointsFor(kind)
	if err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "is required"}
	}

	var raw []byte
	if err := c.do(ctx, http.MethodGet, ep.detail+url.PathEscape(id), nil, nil, &raw); err != nil {
		return nil, err
	}

	body, err := unwrapDocument(raw)
	if err != nil {
		return nil, &ServerError{Method: http.MethodGet, URL: ep.detail + id, StatusCode: http.StatusOK, Cause: err}
	}
	return evaluation.Decode(body, kind)
}

// GetEvaluation fetches a single evaluation.
func (c *Client) GetEvaluation(ctx context.Context, id string) (*evaluation.Document, error) {
	return c.Get(ctx, evaluation.KindEvaluation, id)
}

// GetTraining fetches a single training.
func (c *Client) GetTraining(ctx context.Context, id string) (*evaluation.Document, error) {
	return c.Get(ctx, evaluation.KindTraining, id)
}

// Archive soft-deletes one record.
func (c *Client) Archive(ctx context.Context, kind evaluation.Kind, id string) error {
	ep, err := endpointsFor(kind)
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	return c.do(ctx, http.MethodPost, ep.archive+url.PathEscape(id), nil, nil, nil)
}

// ArchiveEvaluation soft-deletes one evaluation.
func (c *Client) ArchiveEvaluation(ctx context.Context, id string) error {
	return c.Archive(ctx, evaluation.KindEvaluation, id)
}

// ArchiveTraining soft-deletes one training.
func (c *Client) ArchiveTraining(ctx context.Context, id string) error {
	return c.Archive(ctx, evaluation.KindTraining, id)
}

// BulkArchive soft-deletes several records of one type in a single call. The
// request is validated before anything is sent.
func (c *Client) BulkArchive(ctx context.Context, req BulkArchiveRequest) error {
	if err := c.ValidateBulkArchive(req); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/archive/bulkArchive", nil, req, nil)
}

// ValidateBulkArchive checks req and returns a *ValidationError describing the first problem.
func (c *Client) ValidateBulkArchive(req BulkArchiveRequest) error {
	err := c.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fe := verrs[0]
	switch {
	case fe.StructField() == "Data":
		return &ValidationError{Field: "data", Message: "select at least one record to archive"}
	case fe.StructField() == "Type":
		return &ValidationError{Field: "type", Message: "must be evaluation or training"}
	default:
		return &ValidationError{Field: fe.Field(), Message: "failed on the '" + fe.Tag() + "' rule"}
	}
}
