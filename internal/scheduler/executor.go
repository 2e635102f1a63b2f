package scheduler

import "golang.org/x/sync/errgroup"

// Executor runs tick-triggered job bodies away from the tick loop so a slow
// job cannot delay the next tick. Go reports false when fn was not accepted.
type Executor interface {
	Go(fn func()) bool
}

// PoolExecutor runs functions on goroutines, at most limit at a time.
// A full pool rejects work instead of queueing it.
type PoolExecutor struct {
	g errgroup.Group
}

func NewPoolExecutor(limit int) *PoolExecutor {
	p := &PoolExecutor{}
	if limit > 0 {
		p.g.SetLimit(limit)
	}
	return p
}

func (p *PoolExecutor) Go(fn func()) bool {
	return p.g.TryGo(func() error {
		fn()
		return nil
	})
}

// Wait blocks until every accepted function has returned.
func (p *PoolExecutor) Wait() {
	_ = p.g.Wait()
}

// InlineExecutor runs fn on the caller's goroutine.
type InlineExecutor struct{}

func (InlineExecutor) Go(fn func()) bool {
	fn()
	return true
}
