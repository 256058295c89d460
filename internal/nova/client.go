package nova

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultModelID is the Nova Canvas model invoked when no override is given.
const DefaultModelID = "amazon.nova-canvas-v1:0"

// DefaultTimeout bounds a single InvokeModel call. Premium multi-image
// requests can take over a minute.
const DefaultTimeout = 120 * time.Second

// BedrockInvoker is the slice of the Bedrock runtime client the generator
// needs. *bedrockruntime.Client satisfies it.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// GenerationResult is the uniform outcome of one generation call. Callers
// branch on Failed(): a failed result carries no images and a message
// suitable for logging; it never reaches the caller as a raised error.
type GenerationResult struct {
	// RequestID correlates log lines for one generation call.
	RequestID string
	// Images are base64-encoded blobs in the order the service returned
	// them. Empty when Failed().
	Images []string
	// ErrorMessage is set when the call failed in transport or the service
	// reported an error.
	ErrorMessage string
}

// Failed reports whether the call produced no usable images.
func (r *GenerationResult) Failed() bool {
	return r.ErrorMessage != "" || len(r.Images) == 0
}

// novaResponse is the body Nova Canvas returns from InvokeModel.
type novaResponse struct {
	Images []string `json:"images"`
	Error  string   `json:"error"`
}

// Generator performs single synchronous Nova Canvas invocations. It holds no
// mutable state and writes nothing to disk.
type Generator struct {
	client  BedrockInvoker
	modelID string
	timeout time.Duration
}

// NewGenerator creates a Generator for the given Bedrock runtime client.
// An empty modelID selects DefaultModelID.
func NewGenerator(client BedrockInvoker, modelID string) *Generator {
	if modelID == "" {
		modelID = DefaultModelID
	}
	return &Generator{
		client:  client,
		modelID: modelID,
		timeout: DefaultTimeout,
	}
}

// WithTimeout overrides the per-call timeout. A zero or negative duration
// disables the bound.
func (g *Generator) WithTimeout(d time.Duration) *Generator {
	g.timeout = d
	return g
}

// ModelID returns the model this generator invokes.
func (g *Generator) ModelID() string {
	return g.modelID
}

// Generate performs exactly one InvokeModel call with the assembled payload.
// Transport and service failures are captured in the result rather than
// returned, so the caller always receives a GenerationResult to branch on.
// The only error path out of this function is payload marshalling, which
// indicates a programming bug, not a remote failure.
func (g *Generator) Generate(ctx context.Context, params *InferenceParams) (*GenerationResult, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal inference params: %w", err)
	}

	result := &GenerationResult{RequestID: uuid.NewString()}

	log.Info().
		Str("request_id", result.RequestID).
		Str("model_id", g.modelID).
		Str("task_type", params.TaskType).
		Int("body_bytes", len(body)).
		Msg("Invoking Nova Canvas")

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	elapsed := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", result.RequestID).
			Dur("duration", elapsed).
			Msg("InvokeModel failed")
		result.ErrorMessage = fmt.Sprintf("invoke model: %v", err)
		return result, nil
	}

	var resp novaResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		log.Error().
			Err(err).
			Str("request_id", result.RequestID).
			Msg("Failed to parse model response")
		result.ErrorMessage = fmt.Sprintf("parse model response: %v", err)
		return result, nil
	}

	if resp.Error != "" {
		log.Error().
			Str("request_id", result.RequestID).
			Str("model_error", resp.Error).
			Msg("Model reported an error")
		result.ErrorMessage = resp.Error
		return result, nil
	}

	if len(resp.Images) == 0 {
		result.ErrorMessage = "model returned no images"
		return result, nil
	}

	result.Images = resp.Images

	log.Info().
		Str("request_id", result.RequestID).
		Int("images", len(result.Images)).
		Dur("duration", elapsed).
		Msg("Generation complete")

	return result, nil
}
