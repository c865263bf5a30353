package memfabric

import "errors"

// ErrUnknownEndpoint is returned by Send when addr has no registered
// endpoint on the switch.
var ErrUnknownEndpoint = errors.New("memfabric: unknown endpoint")
