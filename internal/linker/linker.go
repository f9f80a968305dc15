// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Package linker finds entity mentions in free-text queries. Linkers
// return mentions marked up as "[ mention ]" in the text they produce.
package linker

import (
	"context"
	"regexp"
	"strings"

	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// Linker extracts entity mentions from a query.
type Linker interface {
	Link(ctx context.Context, text string) ([]string, error)
}

var mentionPattern = regexp.MustCompile(`\[\s([\w|\s]*?)\s\]`)

// ParseAnnotated returns the mentions marked "[ mention ]" in text, in
// order of appearance, trimmed. Empty brackets are ignored.
func ParseAnnotated(text string) []string {
	var out []string
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		if s := strings.TrimSpace(m[1]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Annotated treats its input as already marked up.
type Annotated struct{}

var _ Linker = Annotated{}

// Link parses the markup in text.
func (Annotated) Link(_ context.Context, text string) ([]string, error) {
	return ParseAnnotated(text), nil
}

// Factory builds a Linker from config.
type Factory func(cfg Config) (Linker, error)

// Config selects and configures a linker.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

var factories = map[string]Factory{
	"annotated": func(Config) (Linker, error) { return Annotated{}, nil },
	"anthropic": func(cfg Config) (Linker, error) {
		l, err := NewAnthropic(cfg)
		if err != nil {
			return nil, err
		}
		return l, nil
	},
}

// New returns the linker named by cfg.Provider; empty means "annotated".
func New(cfg Config) (Linker, error) {
	name := cfg.Provider
	if name == "" {
		name = "annotated"
	}
	f, ok := factories[name]
	if !ok {
		return nil, qerr.New(qerr.CodeLinkerProviderNotFound, "unknown linker provider", qerr.Field("provider", name))
	}
	return f(cfg)
}
