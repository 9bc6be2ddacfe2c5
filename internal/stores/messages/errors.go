package messages

import (
	"errors"
	"fmt"
)

// ErrClosed is returned for operations submitted after Close
var ErrClosed = errors.New("message store is closed")

// Kind classifies a store failure
type Kind string

const (
	KindIO      Kind = "io"
	KindCorrupt Kind = "corrupt"
)

// StoreError is returned by every failing store operation
type StoreError struct {
	Kind  Kind
	Op    string
	Batch uint64 // id of the undecodable batch for KindCorrupt
	Err   error
}

func (e *StoreError) Error() string {
	if e.Kind == KindCorrupt {
		return fmt.Sprintf("message store %s: batch %d is corrupt: %v", e.Op, e.Batch, e.Err)
	}
	return fmt.Sprintf("message store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
