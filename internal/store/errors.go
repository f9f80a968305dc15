// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package store

import "errors"

// Sentinel errors for store operations, checked with errors.Is.
var (
	// ErrClosed indicates the backend was used after Close.
	ErrClosed = errors.New("store closed")

	// ErrUnknownKind indicates a value was written under a kind no backend persists.
	ErrUnknownKind = errors.New("unknown cache kind")
)
