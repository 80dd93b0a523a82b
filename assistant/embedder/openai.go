// Package embedder provides the text-to-vector collaborators: an
// OpenAI-compatible API client and a deterministic local hash embedder.
package embedder

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/retailmate/core/assistant/contract"
)

type Config struct {
	BaseURL    string        `envconfig:"BASE_URL" split_words:"true"`
	APIKey     string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model      string        `envconfig:"MODEL" split_words:"true" default:"text-embedding-3-small"`
	Dimensions int           `envconfig:"DIMENSIONS" split_words:"true" default:"384"`
	Timeout    time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

// OpenAI calls an OpenAI-compatible /embeddings endpoint. Results are
// deterministic for identical input and model version.
type OpenAI struct {
	client openaisdk.Client
	model  string
	dims   int
}

func NewOpenAI(cfg Config) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: embedder api key is required", contract.ErrValidation)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: embedder dimensions must be positive", contract.ErrValidation)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	return &OpenAI{
		client: openaisdk.NewClient(opts...),
		model:  strings.TrimSpace(cfg.Model),
		dims:   cfg.Dimensions,
	}, nil
}

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts to embed", contract.ErrValidation)
	}

	resp, err := o.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input:      openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openaisdk.EmbeddingModel(o.model),
		Dimensions: openaisdk.Int(int64(o.dims)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings request: %v", contract.ErrUpstream, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", contract.ErrUpstream, len(texts), len(resp.Data))
	}

	vecs := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (o *OpenAI) Dimensions() int {
	return o.dims
}
