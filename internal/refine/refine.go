// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Package refine filters candidate entity pairs down to those whose
// descriptions are usable.
package refine

import (
	"strings"

	"github.com/quarry-kg/quarry/internal/kg"
)

// DefaultMarker flags descriptions of wiki-internal pages.
const DefaultMarker = "Wikimedia"

// Reason names the rule that rejected a pair.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonMissingDescription Reason = "missing_description"
	ReasonLabelAsDescription Reason = "label_as_description"
	ReasonMarker             Reason = "marker"
)

// Refiner applies the quality rules in order; the first match rejects.
type Refiner struct {
	Marker string
}

// New returns a refiner using marker, or DefaultMarker when marker is empty.
func New(marker string) Refiner {
	if marker == "" {
		marker = DefaultMarker
	}
	return Refiner{Marker: marker}
}

// Refine accepts p or reports why it was rejected.
func (r Refiner) Refine(p kg.CandidatePair) (kg.RefinedPair, Reason, bool) {
	switch {
	case p.DescriptionA == "" || p.DescriptionB == "":
		return kg.RefinedPair{}, ReasonMissingDescription, false
	case p.DescriptionA == p.LabelA || p.DescriptionB == p.LabelB:
		return kg.RefinedPair{}, ReasonLabelAsDescription, false
	case r.Marker != "" && (strings.Contains(p.DescriptionA, r.Marker) || strings.Contains(p.DescriptionB, r.Marker)):
		return kg.RefinedPair{}, ReasonMarker, false
	}
	return kg.RefinedPair{CandidatePair: p}, ReasonNone, true
}
