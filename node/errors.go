package node

import "errors"

// ErrCallTimeout is returned by Call when no matching response arrives
// before the deadline. Never fatal: bootstrap skips the peer, lookup
// marks it queried with no contribution — see Bootstrap and lookup.go.
var ErrCallTimeout = errors.New("node: call timed out")

// ErrUnexpectedKind names a reply whose correlation id matches but whose
// kind differs from the expected one. Call does not return it: such a
// reply is ignored by the pending-call dispatch, and Call keeps waiting
// until a reply of the expected kind, its timeout, or ctx cancellation.
var ErrUnexpectedKind = errors.New("node: reply kind mismatch")
