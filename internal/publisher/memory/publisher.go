// Package memory contains an in-memory run summary publisher for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/campus-events-crawler/internal/publisher"
)

var _ publisher.Publisher = (*Publisher)(nil)

// Publisher stores published summaries for inspection.
type Publisher struct {
	mu       sync.RWMutex
	messages []publisher.RunSummary
	err      error
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// FailWith makes every later Publish return err.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Publish records the summary and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, summary publisher.RunSummary) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.messages = append(p.messages, summary)
	return fmt.Sprintf("memory-%d", len(p.messages)), nil
}

// Messages returns the recorded summaries.
func (p *Publisher) Messages() []publisher.RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]publisher.RunSummary, len(p.messages))
	copy(out, p.messages)
	return out
}
