package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	defaultGeminiModel       = "gemini-2.0-flash"
	defaultInlineLimitBytes  = 15 << 20
	fileActivePollInterval   = 2 * time.Second
	fileActivePollMaxWaiting = 2 * time.Minute
)

// GeminiClient implements Client using Google's Gemini API. Audio up to
// inlineLimit bytes travels inline with the request; larger recordings are
// uploaded through the Files API and deleted after the call.
type GeminiClient struct {
	client      *genai.Client
	modelID     string
	inlineLimit int
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, apiKey, modelID string, inlineLimit int) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("llm: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultGeminiModel
	}
	if inlineLimit <= 0 {
		inlineLimit = defaultInlineLimitBytes
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("llm: failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		modelID:     modelID,
		inlineLimit: inlineLimit,
	}, nil
}

func (c *GeminiClient) Name() string { return "gemini" }

// Complete sends the instruction set, media and prompt to Gemini in a single
// generate call.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (Response, error) {
	modelID := c.modelID
	if strings.TrimSpace(req.Model) != "" {
		modelID = req.Model
	}
	model := c.client.GenerativeModel(modelID)

	if req.Temperature >= 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}
	if systemText := strings.TrimSpace(strings.Join(req.System, "\n\n")); systemText != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(systemText))
	}

	parts := make([]genai.Part, 0, len(req.Media)+1)
	for _, m := range req.Media {
		part, cleanup, err := c.mediaPart(ctx, m)
		if err != nil {
			return Response{}, upstream(c.Name(), err)
		}
		if cleanup != nil {
			defer cleanup()
		}
		parts = append(parts, part)
	}
	if strings.TrimSpace(req.Prompt) == "" && len(parts) == 0 {
		return Response{}, errors.New("llm: gemini requires a prompt or media")
	}
	if strings.TrimSpace(req.Prompt) != "" {
		parts = append(parts, genai.Text(req.Prompt))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return Response{}, upstream(c.Name(), err)
	}
	out, err := geminiResponse(resp)
	if err != nil {
		return Response{}, upstream(c.Name(), err)
	}
	return out, nil
}

// mediaPart returns the request part for m and an optional cleanup that removes
// the uploaded file.
func (c *GeminiClient) mediaPart(ctx context.Context, m Media) (genai.Part, func(), error) {
	if len(m.Data) == 0 {
		return nil, nil, errors.New("empty media payload")
	}
	mimeType := m.MIMEType
	if mimeType == "" {
		mimeType = DefaultAudioMIMEType
	}
	if len(m.Data) <= c.inlineLimit {
		return genai.Blob{MIMEType: mimeType, Data: m.Data}, nil, nil
	}

	file, err := c.client.UploadFile(ctx, "", bytes.NewReader(m.Data), &genai.UploadFileOptions{
		MIMEType:    mimeType,
		DisplayName: m.DisplayName,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("upload media: %w", err)
	}
	cleanup := func() {
		// the request context may already be done; deletion is best effort
		delCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = c.client.DeleteFile(delCtx, file.Name)
	}

	file, err = c.waitActive(ctx, file)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return genai.FileData{MIMEType: file.MIMEType, URI: file.URI}, cleanup, nil
}

func (c *GeminiClient) waitActive(ctx context.Context, file *genai.File) (*genai.File, error) {
	deadline := time.Now().Add(fileActivePollMaxWaiting)
	for file.State == genai.FileStateProcessing {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("uploaded media %s still processing", file.Name)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(fileActivePollInterval):
		}
		var err error
		file, err = c.client.GetFile(ctx, file.Name)
		if err != nil {
			return nil, fmt.Errorf("poll uploaded media: %w", err)
		}
	}
	if file.State != genai.FileStateActive {
		return nil, fmt.Errorf("uploaded media %s in state %v", file.Name, file.State)
	}
	return file, nil
}

func geminiResponse(resp *genai.GenerateContentResponse) (Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return Response{}, errors.New("gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Response{}, errors.New("gemini returned empty content")
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	out := Response{
		Text:       strings.TrimSpace(text.String()),
		StopReason: candidate.FinishReason.String(),
	}
	if resp.UsageMetadata != nil {
		out.Usage = TokenUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}
	return out, nil
}

// Close releases resources held by the Gemini client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
