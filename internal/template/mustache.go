package template

import (
	"context"
	"fmt"
	"sync"

	"github.com/cbroglie/mustache"
	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"go.uber.org/zap"
)

var _ domain.TemplateEngine = (*MustacheEngine)(nil)

// MustacheEngine renders logic-less templates such as AMP email bodies.
// Parsed templates are cached by content.
type MustacheEngine struct {
	logger *zap.Logger
	cache  sync.Map
}

func NewMustacheEngine(logger *zap.Logger) *MustacheEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MustacheEngine{logger: logger}
}

func (e *MustacheEngine) Render(ctx context.Context, content string, model map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmpl, err := e.parse(content)
	if err != nil {
		return "", err
	}

	rendered, err := tmpl.Render(model)
	if err != nil {
		e.logger.Warn("mustache render failed", zap.Error(err))
		return "", fmt.Errorf("mustache render error: %w", err)
	}
	return rendered, nil
}

// Validate reports template syntax errors without rendering.
func (e *MustacheEngine) Validate(content string) error {
	_, err := e.parse(content)
	return err
}

func (e *MustacheEngine) parse(content string) (*mustache.Template, error) {
	if cached, ok := e.cache.Load(content); ok {
		return cached.(*mustache.Template), nil
	}

	tmpl, err := mustache.ParseString(content)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid mustache template: %v", domain.ErrValidation, err)
	}
	e.cache.Store(content, tmpl)
	return tmpl, nil
}
