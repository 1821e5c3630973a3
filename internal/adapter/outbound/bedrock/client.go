package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"medinotes/internal/application/common/retry"
	"medinotes/internal/application/common/slogger"
	"medinotes/internal/config"
	domainerrors "medinotes/internal/domain/errors/domain"
	"medinotes/internal/port/outbound"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const anthropicVersion = "bedrock-2023-05-31"

// modelInvoker is the slice of the Bedrock runtime API the client uses.
type modelInvoker interface {
	InvokeModel(
		ctx context.Context,
		params *bedrockruntime.InvokeModelInput,
		optFns ...func(*bedrockruntime.Options),
	) (*bedrockruntime.InvokeModelOutput, error)
}

// Client invokes AWS Bedrock models for text generation and embeddings.
// Every invocation passes through the process-wide request limiter before
// reaching the API.
type Client struct {
	runtime     modelInvoker
	config      config.BedrockConfig
	limiter     *RequestLimiter
	retryConfig *retry.RetryConfig
}

// NewClient creates a Bedrock client from configuration, resolving AWS
// credentials from the default chain.
func NewClient(ctx context.Context, cfg config.BedrockConfig) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return newClient(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

func newClient(runtime modelInvoker, cfg config.BedrockConfig) *Client {
	return &Client{
		runtime: runtime,
		config:  cfg,
		limiter: NewRequestLimiter(cfg.RateLimitRPS, cfg.BurstCapacity, cfg.AcquireTimeout),
		retryConfig: &retry.RetryConfig{
			MaxRetries:    cfg.MaxRetries,
			InitialDelay:  time.Second,
			MaxDelay:      30 * time.Second,
			BackoffFactor: 2.0,
			Jitter:        true,
		},
	}
}

// Limiter exposes the request limiter for stats reporting.
func (c *Client) Limiter() *RequestLimiter {
	return c.limiter
}

// anthropicRequest is the Bedrock request body for Anthropic models.
type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float64            `json:"temperature"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// anthropicResponse is the Bedrock response body for Anthropic models.
type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate implements outbound.TextGenerator.
func (c *Client) Generate(
	ctx context.Context,
	request outbound.GenerationRequest,
) (*outbound.GenerationResult, error) {
	if strings.TrimSpace(request.UserPrompt) == "" {
		return nil, &outbound.GenerationError{
			Code:      "empty_prompt",
			Type:      "validation",
			Message:   "user prompt cannot be empty",
			Retryable: false,
		}
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}
	temperature := request.Temperature
	if temperature <= 0 {
		temperature = c.config.Temperature
	}

	body, err := json.Marshal(anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		Temperature:      temperature,
		System:           request.SystemPrompt,
		Messages: []anthropicMessage{
			{
				Role:    "user",
				Content: []anthropicContent{{Type: "text", Text: request.UserPrompt}},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation request: %w", err)
	}

	raw, err := c.invoke(ctx, c.config.ModelID, body, request.Timeout)
	if err != nil {
		return nil, err
	}

	var response anthropicResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, &outbound.GenerationError{
			Code:      "malformed_response",
			Type:      "server",
			Message:   "failed to decode model response",
			Retryable: false,
			Cause:     err,
		}
	}

	var text strings.Builder
	for _, content := range response.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}

	return &outbound.GenerationResult{
		Text:         text.String(),
		Model:        c.config.ModelID,
		InputTokens:  response.Usage.InputTokens,
		OutputTokens: response.Usage.OutputTokens,
		GeneratedAt:  time.Now(),
	}, nil
}

// titanEmbedRequest is the Bedrock request body for Titan embedding models.
type titanEmbedRequest struct {
	InputText string `json:"inputText"`
	Normalize bool   `json:"normalize"`
}

// titanEmbedResponse is the Bedrock response body for Titan embedding models.
type titanEmbedResponse struct {
	Embedding           []float64 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// GenerateEmbedding implements outbound.EmbeddingGenerator.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &outbound.GenerationError{
			Code:      "empty_text",
			Type:      "validation",
			Message:   "text content cannot be empty",
			Retryable: false,
		}
	}

	body, err := json.Marshal(titanEmbedRequest{InputText: text, Normalize: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	raw, err := c.invoke(ctx, c.config.EmbeddingModel, body, 0)
	if err != nil {
		return nil, err
	}

	var response titanEmbedResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, &outbound.GenerationError{
			Code:      "malformed_response",
			Type:      "server",
			Message:   "failed to decode embedding response",
			Retryable: false,
			Cause:     err,
		}
	}
	return response.Embedding, nil
}

// GenerateBatchEmbeddings implements outbound.EmbeddingGenerator. The
// embedding model has no batch endpoint, so texts are embedded one by one,
// each passing the rate limiter.
func (c *Client) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vector, err := c.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding %d of %d failed: %w", i+1, len(texts), err)
		}
		vectors[i] = vector
	}
	return vectors, nil
}

// invoke calls the model, retrying transient invocation errors with
// backoff. Every attempt, retries included, acquires its own rate-limit
// slot so retried calls stay throttled too.
func (c *Client) invoke(ctx context.Context, modelID string, body []byte, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var raw []byte
	operation := func(ctx context.Context) error {
		if !c.limiter.AcquireForRequest(ctx) {
			return &outbound.GenerationError{
				Code:      "rate_limit_timeout",
				Type:      "throttling",
				Message:   "timed out waiting for an outbound request slot",
				Retryable: true,
				Cause:     domainerrors.ErrRateLimitTimeout,
			}
		}

		start := time.Now()
		output, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(modelID),
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
			Body:        body,
		})
		if err != nil {
			return classifyInvokeError(err)
		}

		slogger.Debug(ctx, "Bedrock invocation succeeded", slogger.Fields{
			"model_id": modelID,
			"duration": time.Since(start).String(),
		})
		raw = output.Body
		return nil
	}

	checker := retry.RetryableCheckerFunc(IsRetryableError)
	if err := retry.WithRetryAndChecker(ctx, c.retryConfig, checker, operation); err != nil {
		return nil, err
	}
	return raw, nil
}
