package player

import (
	"context"
	"sync"
	"time"
)

// DefaultRevealInterval is the delay between two revealed characters.
const DefaultRevealInterval = 30 * time.Millisecond

// Frame is one step of a progressive text reveal. Text is always a prefix of
// the node's full text, never carrying characters of another node.
type Frame struct {
	NodeID string `json:"nodeId"`
	Text   string `json:"text"`
	Done   bool   `json:"done"`
}

// Revealer runs at most one reveal at a time. Starting a new reveal cancels
// the one in flight.
type Revealer struct {
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewRevealer creates a Revealer; a non-positive interval emits all frames
// without delay.
func NewRevealer(interval time.Duration) *Revealer {
	return &Revealer{interval: interval}
}

// Reveal cancels any previous reveal and streams growing prefixes of text,
// one character at a time. The channel is closed once the final frame is
// sent or when ctx or a later Reveal/Stop cancels the run.
func (r *Revealer) Reveal(ctx context.Context, nodeID, text string) <-chan Frame {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	out := make(chan Frame)
	go func() {
		defer close(out)
		defer cancel()

		runes := []rune(text)
		var tick <-chan time.Time
		if r.interval > 0 {
			ticker := time.NewTicker(r.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for i := 1; i <= len(runes); i++ {
			if tick != nil && i > 1 {
				select {
				case <-runCtx.Done():
					return
				case <-tick:
				}
			}
			if runCtx.Err() != nil {
				return
			}
			f := Frame{NodeID: nodeID, Text: string(runes[:i]), Done: i == len(runes)}
			select {
			case <-runCtx.Done():
				return
			case out <- f:
			}
		}
		if len(runes) == 0 && runCtx.Err() == nil {
			select {
			case <-runCtx.Done():
			case out <- Frame{NodeID: nodeID, Done: true}:
			}
		}
	}()
	return out
}

// Stop cancels the reveal in flight, if any.
func (r *Revealer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
