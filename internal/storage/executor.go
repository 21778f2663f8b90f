package storage

// Executor runs a unit of work without the caller waiting on its result.
type Executor interface {
	Execute(fn func())
}

// DirectExecutor runs fn on the calling goroutine. Connection aborts use it
// so cancellation never queues behind a worker pool.
type DirectExecutor struct{}

// Execute runs fn immediately.
func (DirectExecutor) Execute(fn func()) { fn() }

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

// Execute calls f(fn).
func (f ExecutorFunc) Execute(fn func()) { f(fn) }
