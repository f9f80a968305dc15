// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package health

import "time"

// Metrics is a point-in-time view of the upstream endpoint's health as seen
// by the gateway. Safe to serialize to JSON.
type Metrics struct {
	Calls               int64      `json:"calls"`
	FailureCount        int64      `json:"failure_count"`
	ConsecutiveFailures int64      `json:"consecutive_failures"`
	LastError           string     `json:"last_error,omitempty"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
	CooldownUntil       *time.Time `json:"cooldown_until,omitempty"`
	Available           bool       `json:"available"`
}
