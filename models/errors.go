package models

import "errors"

// Translation failure taxonomy. Every failure surfaced by the sidecar wraps
// exactly one of these, so the RPC layer can map it to a distinguishable
// JSON-RPC error code.
var (
	ErrDecode         = errors.New("malformed raw transaction")
	ErrSignature      = errors.New("invalid transaction signature")
	ErrAddressMapping = errors.New("address has no valid mapping")
	ErrSerialization  = errors.New("payload serialization failed")
	ErrUpstream       = errors.New("engine request failed")
	ErrRejected       = errors.New("rejected by engine")
	ErrNotFound       = errors.New("not found")
)
