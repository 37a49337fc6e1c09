// Package models defines the typed records exchanged with the store backend.
//
// Every response is decoded into one of these types at the transport
// boundary and checked with Validate where the client relies on invariants
// (non-negative quantities and prices, keyed cart lines). Money uses
// shopspring/decimal throughout.
package models

import "errors"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid record")
