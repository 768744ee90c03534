package audit

import "errors"

// ErrSinkClosed is returned when appending to a closed sink.
var ErrSinkClosed = errors.New("audit sink closed")
