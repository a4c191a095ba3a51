package stream

import "errors"

// ErrStreamInProgress rejects a start request while the session is streaming.
var ErrStreamInProgress = errors.New("stream already in progress")
