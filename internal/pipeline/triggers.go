package pipeline

// Triggers coalesces re-run requests from the watcher and the HTTP API into
// a single pending run.
type Triggers struct {
	ch chan struct{}
}

// NewTriggers creates an empty trigger queue.
func NewTriggers() *Triggers {
	return &Triggers{ch: make(chan struct{}, 1)}
}

// C is the channel passed to Pipeline.Run.
func (t *Triggers) C() <-chan struct{} {
	return t.ch
}

// Request queues a run. It reports false when one is already pending.
func (t *Triggers) Request() bool {
	select {
	case t.ch <- struct{}{}:
		return true
	default:
		return false
	}
}
