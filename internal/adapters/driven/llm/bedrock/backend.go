// Package bedrock provides a generation backend using Anthropic models served
// by AWS Bedrock. Credentials come from the default AWS credential chain.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/llm"
	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

// Ensure Backend implements the interfaces.
var (
	_ driven.GenerationBackend = (*Backend)(nil)
	_ driven.PromptStoreAware  = (*Backend)(nil)
)

// Default configuration values.
const (
	DefaultModel     = "anthropic.claude-3-haiku-20240307-v1:0"
	DefaultMaxTokens = 500

	bedrockAnthropicVersion = "bedrock-2023-05-31"
)

// Config holds configuration for the Bedrock backend.
type Config struct {
	// Region is the AWS region. Without it the backend is unconfigured.
	Region string

	// Model is the Bedrock model id (default: Claude 3 Haiku).
	Model string
}

// modelInvoker is the subset of *bedrockruntime.Client the backend uses.
type modelInvoker interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput,
		optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Backend answers questions with Claude on Bedrock.
type Backend struct {
	llm.Prompts

	region string
	model  string

	mu     sync.Mutex
	client modelInvoker
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// invokeBody is the Anthropic messages body Bedrock expects.
type invokeBody struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	System           string    `json:"system,omitempty"`
	Temperature      float64   `json:"temperature"`
	Messages         []message `json:"messages"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// New creates a new Bedrock backend. The AWS client is created on first use.
func New(cfg Config) *Backend {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Backend{
		region: cfg.Region,
		model:  cfg.Model,
	}
}

// Name returns "bedrock".
func (b *Backend) Name() string { return string(domain.ProviderBedrock) }

// Model returns the model id.
func (b *Backend) Model() string { return b.model }

// Configured reports whether a region is set.
func (b *Backend) Configured() bool { return b.region != "" }

// Try invokes the model once.
func (b *Backend) Try(ctx context.Context, docContext, question string) (string, error) {
	client, err := b.invoker(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(invokeBody{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        DefaultMaxTokens,
		System:           b.System(),
		Temperature:      0.7,
		Messages:         []message{{Role: "user", Content: b.User(docContext, question)}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	out, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		var throttled *types.ThrottlingException
		if errors.As(err, &throttled) {
			return "", fmt.Errorf("bedrock: %w", domain.ErrRateLimited)
		}
		return "", fmt.Errorf("invoke model: %w", err)
	}

	var resp invokeResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	var result strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(result.String()), nil
}

func (b *Backend) invoker(ctx context.Context) (modelInvoker, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		return b.client, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(b.region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	b.client = bedrockruntime.NewFromConfig(cfg)
	return b.client, nil
}
