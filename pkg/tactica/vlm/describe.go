package vlm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cognicore/tactica/internal/logger"
	"github.com/cognicore/tactica/pkg/tactica/internalerr"
	"github.com/cognicore/tactica/pkg/tactica/schema"
)

const (
	defaultDescribeTokens  = 1024
	defaultPositionsTokens = 2048
)

type classification struct {
	IsDiagram        *bool    `json:"is_diagram"`
	Description      *string  `json:"description"`
	MovementPatterns []string `json:"movement_patterns"`
}

var errShape = errors.New("vlm: response does not match the expected shape")

func (c classification) validate() error {
	if c.IsDiagram == nil {
		return fmt.Errorf("%w: is_diagram missing", errShape)
	}
	if c.Description == nil {
		return fmt.Errorf("%w: description missing", errShape)
	}
	return nil
}

// Describer runs Pass 1: is the image a coaching diagram, and what does it show.
type Describer struct {
	backend   Backend
	log       *logger.Logger
	maxTokens int
}

// NewDescriber creates a Pass-1 describer. A nil logger discards output.
func NewDescriber(backend Backend, log *logger.Logger) *Describer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Describer{backend: backend, log: log, maxTokens: defaultDescribeTokens}
}

// Describe classifies one image. It never fails: after a malformed reply
// and one stricter retry, or a backend error, it returns a non-diagram
// result marked Degraded.
func (d *Describer) Describe(ctx context.Context, image []byte) schema.DiagramInfo {
	info := schema.DiagramInfo{MovementPatterns: []string{}, Positions: []schema.PlayerPosition{}}

	c, err := d.classify(ctx, image, classifySystemPrompt)
	if err != nil && ctx.Err() == nil {
		d.log.Debug("pass 1 retry", "error", err)
		c, err = d.classify(ctx, image, classifySystemPrompt+noThinkSuffix)
	}
	if err != nil {
		d.log.Warn("pass 1 degraded", "error", err)
		info.Degraded = true
		return info
	}

	info.IsDiagram = *c.IsDiagram
	info.Description = strings.TrimSpace(*c.Description)
	for _, p := range c.MovementPatterns {
		if p = strings.TrimSpace(p); p != "" {
			info.MovementPatterns = append(info.MovementPatterns, p)
		}
	}
	return info
}

func (d *Describer) classify(ctx context.Context, image []byte, system string) (classification, error) {
	var c classification
	err := complete(ctx, d.backend, "describe", Request{
		Image:     image,
		System:    system,
		User:      classifyPrompt,
		JSONMode:  true,
		MaxTokens: d.maxTokens,
	}, &c)
	if err != nil {
		return c, err
	}
	if err := c.validate(); err != nil {
		return c, internalerr.New(internalerr.KindVLM, "describe", err)
	}
	return c, nil
}
