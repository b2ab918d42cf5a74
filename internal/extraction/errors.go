package extraction

import "errors"

// PermanentError marks a failure no retry can fix, such as a document
// with no extractable text. Pipelines fail these immediately and keep
// the retry budget for genuine outages.
type PermanentError struct {
	err error
}

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{err: err}
}

func (e *PermanentError) Error() string { return e.err.Error() }

func (e *PermanentError) Unwrap() error { return e.err }

// IsPermanent reports whether any error in the chain is permanent.
func IsPermanent(err error) bool {
	var permanent *PermanentError
	return errors.As(err, &permanent)
}
