package scoring

import "errors"

var (
	ErrNoLabels       = errors.New("no labels for scoring round")
	ErrLengthMismatch = errors.New("uids, identities and responses are not aligned")
	ErrNilRegistry    = errors.New("tracker registry is nil")
	ErrUnknownTask    = errors.New("current task is not registered")
	ErrMissingMetric  = errors.New("metric missing from tracker result")
)
