// Package vlm runs the two vision passes over extracted images: diagram
// classification (Pass 1) and diagram structure extraction (Pass 2: players,
// arrows, equipment and goals, pitch view), and merges their results into
// drills.
package vlm

import (
	"context"

	"github.com/cognicore/tactica/pkg/tactica/internalerr"
)

// Request is one image-plus-prompt completion.
type Request struct {
	Image     []byte
	System    string
	User      string
	JSONMode  bool
	MaxTokens int
}

// Backend is a vision-capable completion service. Implementations return
// the raw text produced by the model.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req Request) (string, error)

func (f BackendFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// complete sends req and decodes the salvaged JSON reply into out.
func complete(ctx context.Context, backend Backend, op string, req Request, out any) error {
	raw, err := backend.Complete(ctx, req)
	if err != nil {
		return internalerr.New(internalerr.KindVLM, op, err)
	}
	if err := DecodeJSON(raw, out); err != nil {
		return internalerr.New(internalerr.KindVLM, op, err)
	}
	return nil
}
