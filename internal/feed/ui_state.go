package feed

import "context"

// Status is the stage of a one-shot load.
type Status int

const (
	StatusLoading Status = iota
	StatusSuccess
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return ""
	}
}

// UIState is the state of a one-shot load of a T.
type UIState[T any] struct {
	Status Status
	Result T
	Err    error
}

func Loading[T any]() UIState[T] {
	return UIState[T]{Status: StatusLoading}
}

func Success[T any](v T) UIState[T] {
	return UIState[T]{Status: StatusSuccess, Result: v}
}

func Failure[T any](err error) UIState[T] {
	return UIState[T]{Status: StatusFailure, Err: err}
}

// Done reports whether the load has finished.
func (s UIState[T]) Done() bool {
	return s.Status != StatusLoading
}

// Stream runs fn in a goroutine and returns a channel that yields Loading, then
// Success or Failure, then closes.
//
// The channel is buffered for both states, so fn's goroutine never leaks when the
// reader stops early.
func Stream[T any](ctx context.Context, fn func(context.Context) (T, error)) <-chan UIState[T] {
	ch := make(chan UIState[T], 2)
	ch <- Loading[T]()

	go func() {
		defer close(ch)
		v, err := fn(ctx)
		if err != nil {
			ch <- Failure[T](err)
			return
		}
		ch <- Success(v)
	}()
	return ch
}

// Collect drains a stream, calling fn for each state, and returns the final state.
func Collect[T any](ch <-chan UIState[T], fn func(UIState[T])) UIState[T] {
	var last UIState[T]
	for s := range ch {
		if fn != nil {
			fn(s)
		}
		last = s
	}
	return last
}
