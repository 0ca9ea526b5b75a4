package grid

import (
	"context"
	"sync"
)

// Sequencer makes the most recently issued request the only live one. Starting a
// request cancels the context of the one before it, so a slow stale response can
// never overwrite a newer one.
type Sequencer struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Begin starts request number seq. The returned context is canceled by the next
// Begin or by done.
func (s *Sequencer) Begin(parent context.Context) (ctx context.Context, seq uint64, done func()) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq = s.seq
	s.cancel = cancel
	s.mu.Unlock()

	return ctx, seq, cancel
}

// IsLatest reports whether seq is the most recently started request.
func (s *Sequencer) IsLatest(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.seq
}

// Stop cancels the in-flight request, if any.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
