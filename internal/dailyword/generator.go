// Package dailyword generates the word-of-the-day broadcast: it asks a model
// for a word outside the dedup ledger, parses the fixed five-field schema and
// persists the result, retrying on collision up to a bound.
package dailyword

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"taalbot/internal/dispatch"
	"taalbot/internal/store"
)

// FailureMessage is the fixed user-facing string for an exhausted or failed
// generation cycle.
const FailureMessage = "Sorry, couldn't generate the Word of the Day. Please try again later."

// broadcastHeader prefixes every successful payload. It contains the store's
// BroadcastMarker so the payload is never persisted as a conversation turn.
const broadcastHeader = "🎯 " + store.BroadcastMarker + ":"

// Defaults for the generation cycle.
const (
	DefaultMaxAttempts    = 3
	DefaultExclusionLimit = 100
)

// WordStore is the slice of the record store the generator needs.
type WordStore interface {
	KnownWords(limit int) ([]store.KnownWord, error)
	InsertDailyWord(store.DailyWord) error
}

// Completer dispatches a single-shot prompt. Satisfied by *dispatch.Dispatcher.
type Completer interface {
	Send(ctx context.Context, messages []dispatch.Message, modelID string, overrides map[string]any) (string, error)
}

// Generator runs the daily-word generation state machine.
type Generator struct {
	store          WordStore
	llm            Completer
	modelID        string
	maxAttempts    int
	exclusionLimit int
	logger         *zap.Logger

	// Overlapping cycles (manual trigger during the scheduled broadcast)
	// share a single generation instead of burning two model calls.
	group singleflight.Group
}

// Options tune the generation cycle; zero values use the defaults.
type Options struct {
	MaxAttempts    int
	ExclusionLimit int
}

// New builds a generator that dispatches to modelID by default.
func New(st WordStore, llm Completer, modelID string, opts Options, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.ExclusionLimit <= 0 {
		opts.ExclusionLimit = DefaultExclusionLimit
	}
	return &Generator{
		store:          st,
		llm:            llm,
		modelID:        modelID,
		maxAttempts:    opts.MaxAttempts,
		exclusionLimit: opts.ExclusionLimit,
		logger:         logger,
	}
}

// Generate runs one generation cycle and returns the broadcast payload.
// An empty modelID uses the generator's default. On any terminal failure the
// returned error is non-nil; callers present FailureMessage (or an
// UnknownModelError-specific text) instead of the payload.
func (g *Generator) Generate(ctx context.Context, modelID string) (string, error) {
	if modelID == "" {
		modelID = g.modelID
	}

	v, err, shared := g.group.Do("daily-word", func() (any, error) {
		return g.generate(ctx, modelID)
	})
	if shared {
		g.logger.Debug("daily word generation shared with concurrent cycle")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// generate is the bounded retry loop: fetch exclusions, prompt, dispatch,
// parse, persist. A duplicate word re-enters the loop with refreshed
// exclusions; dispatch failures also consume an attempt. Non-duplicate
// storage errors and unknown model ids terminate the cycle immediately.
func (g *Generator) generate(ctx context.Context, modelID string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		known, err := g.store.KnownWords(g.exclusionLimit)
		if err != nil {
			// A prompt without exclusions still works; the UNIQUE
			// constraint catches repeats.
			g.logger.Warn("failed to load known words", zap.Error(err))
			known = nil
		}

		prompt := buildPrompt(known)
		response, err := g.llm.Send(ctx,
			[]dispatch.Message{{Role: dispatch.RoleUser, Content: prompt}},
			modelID, nil)
		if err != nil {
			var unknown *dispatch.UnknownModelError
			if errors.As(err, &unknown) {
				return "", err
			}
			g.logger.Warn("daily word dispatch failed",
				zap.Int("attempt", attempt), zap.Error(err))
			lastErr = err
			continue
		}

		record := recordFromFields(parseFields(response))
		if err := g.store.InsertDailyWord(record); err != nil {
			if errors.Is(err, store.ErrDuplicateWord) {
				g.logger.Info("duplicate daily word, regenerating",
					zap.String("word", record.Word),
					zap.Int("attempt", attempt))
				lastErr = err
				continue
			}
			return "", fmt.Errorf("failed to persist daily word: %w", err)
		}

		g.logger.Info("daily word generated",
			zap.String("word", record.Word),
			zap.Int("attempt", attempt))
		return formatPayload(record), nil
	}

	return "", fmt.Errorf("daily word generation exhausted %d attempts: %w", g.maxAttempts, lastErr)
}

// buildPrompt composes the five-field template with the exclusion list.
func buildPrompt(known []store.KnownWord) string {
	var b strings.Builder
	b.WriteString(`Generate a Dutch Word of the Day in the following format:
Word: [Dutch word]
Translation: [English translation]
Usage example: [Simple Dutch sentence]
Example translation: [English translation of the sentence]
Pronunciation tip: [Simple pronunciation guide]

Choose a commonly used word that would be useful for beginners.`)

	if len(known) > 0 {
		b.WriteString("\nDo not choose any of these words, they have already been used: ")
		for i, kw := range known {
			if i > 0 {
				b.WriteString(", ")
			}
			if kw.Translation != "" {
				fmt.Fprintf(&b, "%s (%s)", kw.Word, kw.Translation)
			} else {
				b.WriteString(kw.Word)
			}
		}
	}
	return b.String()
}

// formatPayload renders the broadcast text.
func formatPayload(w store.DailyWord) string {
	return fmt.Sprintf(`%s

Word: %s
Translation: %s
Usage example: %s
Example translation: %s
Pronunciation tip: %s`,
		broadcastHeader, w.Word, w.Translation, w.UsageExample, w.ExampleTranslation, w.Pronunciation)
}
