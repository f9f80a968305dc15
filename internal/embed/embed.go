// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Package embed measures semantic distance between texts and entities using
// an embedding model. Distances are cached alongside the entity data.
package embed

import (
	"context"
	"math"
	"sort"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// DefaultOpenAIModel is used when Config.Model is empty.
const DefaultOpenAIModel = "text-embedding-3-small"

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Config configures an embedder.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// New returns the embedder named by cfg.Provider. Without an API key there
// is no embedder and the error is unavailable.
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "", "openai":
		e, err := NewOpenAI(cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, qerr.New(qerr.CodeEmbedUnavailable, "unknown embed provider", qerr.Field("provider", cfg.Provider))
	}
}

// OpenAI embeds through the OpenAI embeddings endpoint.
type OpenAI struct {
	client openai.Client
	model  string
}

var _ Embedder = (*OpenAI)(nil)

func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, qerr.New(qerr.CodeEmbedUnavailable, "openai embedder: missing api_key")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}, nil
}

func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, qerr.New(qerr.CodeEmbedRequestInvalid, "nothing to embed")
	}
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(o.model),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, qerr.Wrap(err, qerr.CodeEmbedUpstreamFailure, "openai embeddings request")
	}
	if len(resp.Data) != len(texts) {
		return nil, qerr.New(qerr.CodeEmbedResponseInvalid, "embedding count mismatch",
			qerr.Field("want", len(texts)), qerr.Field("got", len(resp.Data)))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float64, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}

// CosineDistance returns 1 - cos(a, b). Vectors of different length or with
// zero norm are maximally unrelated and give 1.
func CosineDistance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
