package checker

import (
	"context"
	"time"

	"keycheck/internal/gemini"
)

// Prober issues one validation request for a single credential. Test doubles
// implement it to drive the pool without network traffic.
type Prober interface {
	Probe(ctx context.Context, key string) ProbeResult
}

type geminiProber struct {
	client *gemini.Client
	model  string
}

// NewProber builds a Prober that validates keys with a minimal one-token
// generateContent call, the cheapest request that still exercises
// authentication and model access.
func NewProber(client *gemini.Client, model string) Prober {
	if model == "" {
		model = DefaultModel
	}
	return &geminiProber{client: client, model: model}
}

func (p *geminiProber) Probe(ctx context.Context, key string) ProbeResult {
	request := gemini.GenerateContentRequest{
		Contents: []gemini.Content{
			{Role: "user", Parts: []gemini.Part{{Text: "Hi"}}},
		},
		GenerationConfig: &gemini.GenerationConfig{
			MaxOutputTokens: 1,
		},
	}

	start := time.Now()
	_, raw, err := p.client.GenerateContent(ctx, key, p.model, request)
	result := ProbeResult{
		Key:        key,
		DurationMS: time.Since(start).Milliseconds(),
	}
	status := 0
	message := ""
	if raw != nil {
		result.HTTPStatus = raw.StatusCode
		status = raw.StatusCode
	}
	result.Outcome, result.Detail = Classify(p.model, status, message, err)
	return result
}
