package session

import "errors"

var (
	// ErrBusy is returned when a temp data mutation is already running.
	ErrBusy = errors.New("another comparison data operation is in progress")
	// ErrSuperseded is returned by a fetch whose result lost to a newer fetch.
	ErrSuperseded = errors.New("result superseded by a newer request")
	// ErrNoTempData is returned when an operation needs staged comparison data.
	ErrNoTempData = errors.New("no comparison data uploaded")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")
	// ErrUploadExpired is the user-facing form of a stale temp_data_id.
	ErrUploadExpired = errors.New("upload expired, please re-upload")
)

// expiredError reads as ErrUploadExpired and keeps the server error as its cause.
type expiredError struct{ cause error }

func (e *expiredError) Error() string        { return ErrUploadExpired.Error() }
func (e *expiredError) Is(target error) bool { return target == ErrUploadExpired }
func (e *expiredError) Unwrap() error        { return e.cause }
