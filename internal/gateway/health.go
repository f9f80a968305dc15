// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package gateway

import (
	"sync"
	"time"

	qerr "github.com/quarry-kg/quarry/pkg/errors"
	"github.com/quarry-kg/quarry/pkg/health"
)

// DefaultHealthCooldown is the reporting window after a failure.
const DefaultHealthCooldown = 30 * time.Second

// maxErrorLen caps the failure text kept for status output.
const maxErrorLen = 200

// HealthTracker keeps the outcome history of endpoint calls for status
// reporting. It is advisory only: the gateway sends every query regardless.
// The endpoint reads as unavailable while the newest outcome is a failure
// younger than the cooldown.
type HealthTracker struct {
	mu       sync.RWMutex
	cooldown time.Duration
	now      func() time.Time

	calls       int64
	failures    int64
	streak      int64 // failures since the last success
	lastFailure time.Time
	lastSuccess time.Time
	lastErr     string
}

// NewHealthTracker returns a tracker with no recorded outcomes.
func NewHealthTracker(cooldown time.Duration) (*HealthTracker, error) {
	if cooldown <= 0 {
		return nil, qerr.New(qerr.CodeGatewayConfigInvalid, "health cooldown must be positive",
			qerr.Field("cooldown", cooldown.String()))
	}
	return &HealthTracker{cooldown: cooldown, now: time.Now}, nil
}

func (h *HealthTracker) availableAt(t time.Time) bool {
	if h.streak == 0 {
		return true
	}
	return !t.Before(h.lastFailure.Add(h.cooldown))
}

// RecordSuccess ends any failure streak.
func (h *HealthTracker) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	h.streak = 0
	h.lastSuccess = h.now()
}

// RecordFailure notes a failed call and its cause.
func (h *HealthTracker) RecordFailure(cause error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	h.failures++
	h.streak++
	h.lastFailure = h.now()
	h.lastErr = ""
	if cause != nil {
		h.lastErr = cause.Error()
		if len(h.lastErr) > maxErrorLen {
			h.lastErr = h.lastErr[:maxErrorLen]
		}
	}
}

// SetNowFunc replaces the clock. Tests only.
func (h *HealthTracker) SetNowFunc(fn func() time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = fn
}

// Metrics snapshots the outcome history.
func (h *HealthTracker) Metrics() health.Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m := health.Metrics{
		Calls:               h.calls,
		FailureCount:        h.failures,
		ConsecutiveFailures: h.streak,
		LastError:           h.lastErr,
		Available:           h.availableAt(h.now()),
	}
	if !h.lastSuccess.IsZero() {
		t := h.lastSuccess
		m.LastSuccessAt = &t
	}
	if h.failures > 0 {
		t := h.lastFailure
		m.LastFailureAt = &t
	}
	if h.streak > 0 {
		until := h.lastFailure.Add(h.cooldown)
		m.CooldownUntil = &until
	}
	return m
}
