// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package linker

import (
	"context"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// DefaultAnthropicModel is used when Config.Model is empty.
const DefaultAnthropicModel = "claude-haiku-4-5"

const linkPrompt = `You are an entity linker for search queries. Repeat the user's query exactly, ` +
	`but wrap every mention of a named entity or concept that has an encyclopedia article ` +
	`in square brackets with one space inside each bracket, like "[ Berlin ] wall history". ` +
	`Do not add, remove or reorder words. Output only the annotated query.`

// Anthropic links mentions by asking a Claude model to annotate the query.
type Anthropic struct {
	client anthropicsdk.Client
	model  string
}

var _ Linker = (*Anthropic)(nil)

// NewAnthropic returns an Anthropic linker. The API key is required.
func NewAnthropic(cfg Config) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, qerr.New(qerr.CodeLinkerRequestInvalid, "anthropic linker: missing api_key")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &Anthropic{client: anthropicsdk.NewClient(opts...), model: model}, nil
}

// Link sends text for annotation and parses the reply.
func (a *Anthropic) Link(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	msg, err := a.client.Messages.New(ctx, anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(a.model),
		MaxTokens: 512,
		System:    []anthropicsdk.TextBlockParam{{Text: linkPrompt}},
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(text)),
		},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, qerr.Wrap(err, qerr.CodeLinkerUpstreamFailure, "anthropic linker request")
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	return ParseAnnotated(reply.String()), nil
}
