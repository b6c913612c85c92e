// Package sentinel holds infrastructure facts returned by stores.
//
// Stores return these (optionally wrapped) and services translate them into
// domain errors. Validation failures belong in pkg/domain-errors instead.
package sentinel

import "errors"

var (
	// ErrNotFound means the entity does not exist in the store.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness constraint rejected the write.
	ErrConflict = errors.New("conflict")
	// ErrExpired means a session has outlived its TTL.
	ErrExpired = errors.New("expired")
	// ErrInvalidState means the entity is in the wrong state for the operation.
	ErrInvalidState = errors.New("invalid state")
)
