package acquire

import stderrors "errors"

// ErrAcquisition matches every error returned by Fetch and FetchAndStore.
var ErrAcquisition = stderrors.New("acquisition failed")

// Error reports a failure to acquire one image.
type Error struct {
	ID  string
	Err error
}

func newError(id string, err error) *Error {
	return &Error{ID: id, Err: err}
}

func (e *Error) Error() string {
	return ErrAcquisition.Error() + ": " + e.ID + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports true for ErrAcquisition.
func (e *Error) Is(target error) bool {
	return target == ErrAcquisition
}
