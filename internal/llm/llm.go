// Package llm wraps the chat-completion providers used for field extraction.
package llm

import (
	"context"
	"errors"
	"fmt"

	"trustbooks/pkg/config"

	"go.uber.org/zap"
)

var ErrEmptyResponse = errors.New("no response from model")

// Completer sends one system+user exchange and returns the model's text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Name() string
	Close() error
}

// New builds the provider named in cfg. It returns (nil, nil) when AI is
// disabled, in which case callers go straight to their fallback.
func New(ctx context.Context, cfg *config.AIConfig, logger *zap.Logger) (Completer, error) {
	var (
		c   Completer
		err error
	)
	switch cfg.Provider {
	case config.AIProviderNone, "":
		logger.Info("AI provider disabled, regex fallback only")
		return nil, nil
	case config.AIProviderGigaChat:
		c, err = NewGigaChat(ctx, cfg, logger)
	case config.AIProviderOpenAI:
		c, err = NewOpenAI(cfg, logger)
	case config.AIProviderGemini:
		c, err = NewGemini(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
