package client

import (
	"context"
	"sync"
)

// Sequencer gives every request a monotonic token and cancels the request
// it supersedes, so only the newest response is ever applied.
type Sequencer struct {
	mu     sync.Mutex
	latest uint64
	cancel context.CancelFunc
}

// Begin starts a new request. The returned context is cancelled as soon as
// another request begins; done must be called when the request finishes.
func (s *Sequencer) Begin(ctx context.Context) (token uint64, reqCtx context.Context, done func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.latest++
	token = s.latest
	reqCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	return token, reqCtx, func() {
		cancel()
		s.mu.Lock()
		if s.latest == token {
			s.cancel = nil
		}
		s.mu.Unlock()
	}
}

// IsLatest reports whether token belongs to the newest request.
func (s *Sequencer) IsLatest(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return token == s.latest
}

// PageLoader fetches table pages with last-request-wins semantics.
type PageLoader struct {
	client *Client
	seq    Sequencer
}

// NewPageLoader returns a loader backed by c.
func NewPageLoader(c *Client) *PageLoader {
	return &PageLoader{client: c}
}

// Load fetches req. If a newer Load starts before this one returns, this
// call yields ErrSuperseded and no page.
func (l *PageLoader) Load(ctx context.Context, req PageRequest) (*UserPage, error) {
	token, reqCtx, done := l.seq.Begin(ctx)
	defer done()

	page, err := l.client.ListUsers(reqCtx, req)
	if !l.seq.IsLatest(token) {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	return page, nil
}
