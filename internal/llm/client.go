// Package llm holds the clients for the generative extraction service.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Media is a binary attachment (an audio recording) sent alongside the prompt.
type Media struct {
	MIMEType    string
	DisplayName string
	Data        []byte
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type Request struct {
	Model       string
	System      []string
	Prompt      string
	Media       []Media
	MaxTokens   int32
	Temperature float32
}

type Response struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// Client sends one instruction set plus payload and returns one freeform reply.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
}

// ErrMediaUnsupported is returned by providers that only accept text.
var ErrMediaUnsupported = errors.New("llm: provider does not accept media attachments")

// UpstreamError wraps a network or service failure from a provider.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm: %s call failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func upstream(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Provider: provider, Err: err}
}
