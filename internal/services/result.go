package services

import "budzet/internal/core"

// Status is the outcome class of a facade command.
type Status string

const (
	StatusOK          Status = "ok"
	StatusRejected    Status = "rejected"
	StatusUnavailable Status = "unavailable"
)

// Result carries exactly one of a value, a rejection or an unavailability.
// Rejections are final for the request; Unavailable may be retried.
type Result[T any] struct {
	Status Status
	Value  T
	Err    *core.Error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Status: StatusOK, Value: v}
}

// Fail classifies err. Errors that are not ledger errors count as Unavailable.
func Fail[T any](err error) Result[T] {
	e := core.AsError(err)
	if e.Retryable() {
		return Result[T]{Status: StatusUnavailable, Err: e}
	}
	return Result[T]{Status: StatusRejected, Err: e}
}

func resultOf[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

func (r Result[T]) OK() bool { return r.Status == StatusOK }
