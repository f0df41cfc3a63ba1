package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Client abstracts LLM providers for proposal analysis.
type Client interface {
	AnalyzeProposal(ctx context.Context, input AnalyzeInput) (json.RawMessage, error)
}

// AnalyzeInput captures the inputs for one proposal analysis call.
type AnalyzeInput struct {
	ProposalText  string
	ProposalName  string
	ReferenceText string
	Model         string
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, input AnalyzeInput) (json.RawMessage, error)

// AnalyzeProposal calls f.
func (f ClientFunc) AnalyzeProposal(ctx context.Context, input AnalyzeInput) (json.RawMessage, error) {
	return f(ctx, input)
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// AnalyzeProposal returns ErrNotImplemented.
func (PlaceholderClient) AnalyzeProposal(ctx context.Context, input AnalyzeInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	return nil, ErrNotImplemented
}
