// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Package store persists the entity cache. Backends hold one keyed mapping
// per Kind and are written through after every cache mutation batch.
package store

import "context"

// Kind names one persisted mapping.
type Kind string

const (
	KindMention             Kind = "mention_id"
	KindLabel               Kind = "label"
	KindDescription         Kind = "description"
	KindRelationLabel       Kind = "relation_label"
	KindRelationDescription Kind = "relation_description"
	KindDistance            Kind = "distance"

	// KindOutgoing holds the space-separated one-hop object ids of an
	// entity; "" is a cached empty list.
	KindOutgoing Kind = "outgoing"

	// KindAdjacency is list-valued; its entries live in Snapshot.Adjacency.
	KindAdjacency Kind = "adjacency"
)

// ValueKinds lists the string-valued kinds in a stable order.
var ValueKinds = []Kind{
	KindMention,
	KindLabel,
	KindDescription,
	KindRelationLabel,
	KindRelationDescription,
	KindDistance,
	KindOutgoing,
}

// Valid reports whether k is a known string-valued kind.
func (k Kind) Valid() bool {
	for _, v := range ValueKinds {
		if k == v {
			return true
		}
	}
	return false
}

// Snapshot holds cache contents: either everything a backend has (Load) or
// the entries changed by one mutation batch (Flush).
type Snapshot struct {
	Values    map[Kind]map[string]string
	Adjacency map[string][]string
}

// NewSnapshot returns an empty snapshot with every map allocated.
func NewSnapshot() *Snapshot {
	s := &Snapshot{
		Values:    make(map[Kind]map[string]string, len(ValueKinds)),
		Adjacency: make(map[string][]string),
	}
	for _, k := range ValueKinds {
		s.Values[k] = make(map[string]string)
	}
	return s
}

// Empty reports whether the snapshot carries no entries.
func (s *Snapshot) Empty() bool {
	if s == nil {
		return true
	}
	for _, m := range s.Values {
		if len(m) > 0 {
			return false
		}
	}
	return len(s.Adjacency) == 0
}

// Set records a string value, allocating the kind's map if needed.
func (s *Snapshot) Set(kind Kind, key, value string) {
	m, ok := s.Values[kind]
	if !ok {
		m = make(map[string]string)
		s.Values[kind] = m
	}
	m[key] = value
}

// Backend is a durable home for the cache.
type Backend interface {
	// Load returns everything persisted. Missing storage yields an empty
	// snapshot, not an error.
	Load(ctx context.Context) (*Snapshot, error)
	// Flush durably merges delta into storage. A flush either lands
	// completely or not at all.
	Flush(ctx context.Context, delta *Snapshot) error
	Close() error
}
