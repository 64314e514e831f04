// Package fields turns extracted document text into the structured columns of
// an invoice or a bank statement.
//
// Each document kind has its own Extractor. Extraction first asks the
// configured AI completer for a JSON object matching the kind's schema and
// falls back to fixed regex rules when the completer is missing, fails, times
// out or answers with something that is not a JSON object. Bank statements
// with a recognizable table skip both and map the columns directly.
package fields

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trustbooks/internal/extract/text"
	"trustbooks/internal/llm"
	"trustbooks/internal/models"

	"go.uber.org/zap"
)

type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
	SourceTabular  Source = "tabular"
	SourceNone     Source = "none"
)

// Result is never accompanied by a Go error: failures are reported through
// Successful and Err so the caller can still persist partial fields.
type Result struct {
	Fields     models.FieldSet
	Source     Source
	Successful bool
	// Err explains why the AI path was skipped or why the result is not
	// successful. It is informational.
	Err error
}

type Extractor interface {
	Kind() models.DocumentKind
	Extract(ctx context.Context, doc text.Document) Result
}

// Policy tunes the AI call and the success rule.
type Policy struct {
	// MinFallbackFields is how many required fields the regex fallback must
	// find for the result to count as successful.
	MinFallbackFields int
	MaxInputChars     int
	Timeout           time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MinFallbackFields: 1,
		MaxInputChars:     12000,
		Timeout:           30 * time.Second,
	}
}

var (
	errAIUnavailable = errors.New("no AI provider configured")
	errNotJSONObject = errors.New("response is not a JSON object")
)

// Registry selects the extractor for a document kind.
type Registry struct {
	extractors map[models.DocumentKind]Extractor
}

func NewRegistry(completer llm.Completer, policy Policy, logger *zap.Logger) (*Registry, error) {
	inv, err := NewInvoiceExtractor(completer, policy, logger)
	if err != nil {
		return nil, err
	}
	bank, err := NewBankStatementExtractor(completer, policy, logger)
	if err != nil {
		return nil, err
	}
	return &Registry{extractors: map[models.DocumentKind]Extractor{
		inv.Kind():  inv,
		bank.Kind(): bank,
	}}, nil
}

func (r *Registry) For(kind models.DocumentKind) (Extractor, error) {
	e, ok := r.extractors[kind]
	if !ok {
		return nil, fmt.Errorf("no extractor for kind %q", kind)
	}
	return e, nil
}

// aiClient runs the AI path shared by both extractors.
type aiClient struct {
	completer llm.Completer
	schema    *schema
	policy    Policy
	logger    *zap.Logger
}

// request returns the validated response object with invalid fields removed.
func (a *aiClient) request(ctx context.Context, kind models.DocumentKind, body string) (obj map[string]any, err error) {
	if a.completer == nil {
		return nil, errAIUnavailable
	}

	defer func() {
		if r := recover(); r != nil {
			obj, err = nil, fmt.Errorf("ai extraction panic: %v", r)
		}
	}()

	if a.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.policy.Timeout)
		defer cancel()
	}

	started := time.Now()
	prompt := buildPrompt(kind, a.schema, truncateRunes(body, a.policy.MaxInputChars))
	content, err := a.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	obj, err = decodeObject(content)
	if err != nil {
		a.logger.Warn("Unusable AI response",
			zap.String("provider", a.completer.Name()),
			zap.Int("response_length", len(content)),
			zap.Error(err),
		)
		return nil, err
	}

	dropped := a.schema.prune(obj)
	a.logger.Info("AI extraction completed",
		zap.String("provider", a.completer.Name()),
		zap.String("kind", string(kind)),
		zap.Duration("elapsed", time.Since(started)),
		zap.Strings("invalid_fields", dropped),
	)
	return obj, nil
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

// countRequired counts populated fields among required.
func countRequired(fs models.FieldSet, required []string) int {
	populated := map[string]bool{}
	for _, name := range fs.Populated() {
		populated[name] = true
	}
	n := 0
	for _, name := range required {
		if populated[name] {
			n++
		}
	}
	return n
}
