// Package notify turns errors from API calls into short user-facing notifications.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jonathan/vr-training-admin/internal/apiclient"
	"github.com/rs/zerolog"
)

// Level of a notification.
type Level string

// Notification levels.
const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Fallback messages.
const (
	NetworkMessage = "Network error: please check your connection and try again."
	GenericMessage = "Something went wrong. Please try again."
	ExpiredMessage = "Your session has expired. Please sign in again."
)

// Notification is a transient message shown to the user.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Success builds a success notification.
func Success(format string, args ...any) Notification {
	return Notification{Level: LevelSuccess, Message: fmt.Sprintf(format, args...)}
}

// FromError maps err to the notification the user should see. It returns false
// when nothing should be shown: no error, or a request the user abandoned.
func FromError(err error) (Notification, bool) {
	if err == nil || errors.Is(err, context.Canceled) {
		return Notification{}, false
	}

	var (
		verr *apiclient.ValidationError
		serr *apiclient.ServerError
		terr *apiclient.TransportError
	)
	switch {
	case errors.Is(err, apiclient.ErrTokenExpired):
		return Notification{Level: LevelError, Message: ExpiredMessage}, true
	case errors.As(err, &verr):
		return Notification{Level: LevelError, Message: capitalize(verr.Error())}, true
	case errors.As(err, &serr):
		if serr.Message != "" {
			return Notification{Level: LevelError, Message: serr.Message}, true
		}
		return Notification{Level: LevelError, Message: GenericMessage}, true
	case errors.As(err, &terr):
		return Notification{Level: LevelError, Message: NetworkMessage}, true
	default:
		return Notification{Level: LevelError, Message: GenericMessage}, true
	}
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Report logs err with its cause and forwards the user-facing notification to n.
// It reports whether anything was shown.
func Report(ctx context.Context, n Notifier, log zerolog.Logger, err error) bool {
	note, ok := FromError(err)
	if !ok {
		if err != nil {
			log.Debug().Err(err).Msg("request abandoned")
		}
		return false
	}
	log.Warn().Err(err).Str("notification", note.Message).Msg("request failed")
	n.Notify(ctx, note)
	return true
}

// WriterNotifier prints notifications to a writer, one per line.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a notifier writing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify implements Notifier.
func (n *WriterNotifier) Notify(_ context.Context, note Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.w, "[%s] %s\n", note.Level, note.Message)
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	notes []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, note Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note)
}

// Notifications returns a copy of everything recorded so far.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return GenericMessage
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
