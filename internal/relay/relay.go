// Package relay exposes the public entry points of the tutoring core: text
// turns, daily-word subscription commands, on-demand generation and the
// scheduled broadcast. No error crosses this boundary uncaught; every entry
// point returns a user-presentable string.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"taalbot/internal/dailyword"
	"taalbot/internal/dispatch"
)

// WelcomeMessage greets a conversation on /start.
const WelcomeMessage = "Hello! I'm your AI Language Tutor 🤖. Ask me anything!"

// apologyGeneric is the fixed fallback for internal errors.
const apologyGeneric = "Sorry, I encountered an error. Please try again."

// Messenger delivers text to a conversation. Implemented by the chat
// transport; the relay only consumes it for broadcast fan-out.
type Messenger interface {
	SendText(ctx context.Context, conversationID, text string) error
}

// SubscriptionStore is the slice of the record store backing the
// subscription set.
type SubscriptionStore interface {
	UpsertSubscription(conversationID string, active bool) error
	ActiveSubscriptions() (map[string]struct{}, error)
}

// Sessions prepares and records conversation turns. Satisfied by
// *session.Sessions.
type Sessions interface {
	PrepareTurn(conversationID, userText string) []dispatch.Message
	RecordReply(conversationID, assistantText string)
}

// Completer dispatches a prepared message sequence. Satisfied by
// *dispatch.Dispatcher.
type Completer interface {
	Send(ctx context.Context, messages []dispatch.Message, modelID string, overrides map[string]any) (string, error)
}

// Generator runs a daily-word cycle. Satisfied by *dailyword.Generator.
type Generator interface {
	Generate(ctx context.Context, modelID string) (string, error)
}

// Relay wires the conversation core together behind transport-facing
// handlers.
type Relay struct {
	sessions     Sessions
	llm          Completer
	generator    Generator
	subs         SubscriptionStore
	messenger    Messenger
	defaultModel string
	logger       *zap.Logger

	// In-memory mirror of the active subscription rows, loaded at startup
	// and refreshed in the same call path as every persisted upsert.
	mu     sync.Mutex
	active map[string]struct{}
}

// New builds the relay and loads the active subscription set.
func New(sessions Sessions, llm Completer, generator Generator, subs SubscriptionStore, messenger Messenger, defaultModel string, logger *zap.Logger) (*Relay, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	active, err := subs.ActiveSubscriptions()
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	logger.Info("loaded active subscriptions", zap.Int("count", len(active)))

	return &Relay{
		sessions:     sessions,
		llm:          llm,
		generator:    generator,
		subs:         subs,
		messenger:    messenger,
		defaultModel: defaultModel,
		logger:       logger,
		active:       active,
	}, nil
}

// HandleStart returns the greeting for a new conversation.
func (r *Relay) HandleStart(conversationID string) string {
	r.logger.Debug("conversation started", zap.String("conversation_id", conversationID))
	return WelcomeMessage
}

// HandleUserText runs one tutoring turn: assemble the windowed context,
// dispatch, record the reply. Always returns something safe to show the user.
func (r *Relay) HandleUserText(ctx context.Context, conversationID, text string) string {
	messages := r.sessions.PrepareTurn(conversationID, text)

	reply, err := r.llm.Send(ctx, messages, r.defaultModel, nil)
	if err != nil {
		r.logger.Error("turn dispatch failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
		return apologyFor(err)
	}

	r.sessions.RecordReply(conversationID, reply)
	return reply
}

// HandleSubscribe opts a conversation into the daily broadcast.
func (r *Relay) HandleSubscribe(ctx context.Context, conversationID string) string {
	if err := r.subs.UpsertSubscription(conversationID, true); err != nil {
		r.logger.Error("failed to subscribe",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
		return apologyGeneric
	}

	r.mu.Lock()
	r.active[conversationID] = struct{}{}
	r.mu.Unlock()

	r.logger.Info("subscribed to daily word", zap.String("conversation_id", conversationID))
	return "✅ You're subscribed to the Dutch Word of the Day!"
}

// HandleUnsubscribe opts a conversation out. The row is kept with
// active=false so resubscribing later needs no new identifier.
func (r *Relay) HandleUnsubscribe(ctx context.Context, conversationID string) string {
	if err := r.subs.UpsertSubscription(conversationID, false); err != nil {
		r.logger.Error("failed to unsubscribe",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
		return apologyGeneric
	}

	r.mu.Lock()
	delete(r.active, conversationID)
	r.mu.Unlock()

	r.logger.Info("unsubscribed from daily word", zap.String("conversation_id", conversationID))
	return "You've been unsubscribed from the Dutch Word of the Day."
}

// HandleGenerateNow runs an on-demand daily-word cycle. An empty modelID
// uses the generator's default.
func (r *Relay) HandleGenerateNow(ctx context.Context, modelID string) string {
	payload, err := r.generator.Generate(ctx, modelID)
	if err != nil {
		r.logger.Error("on-demand generation failed", zap.Error(err))
		var unknown *dispatch.UnknownModelError
		if errors.As(err, &unknown) {
			return apologyFor(err)
		}
		return dailyword.FailureMessage
	}
	return payload
}

// BroadcastDueItem generates the due daily word and fans it out to every
// active subscription. Delivery failures are logged and skipped; a failed
// generation broadcasts the fixed failure string.
func (r *Relay) BroadcastDueItem(ctx context.Context) {
	payload, err := r.generator.Generate(ctx, "")
	if err != nil {
		r.logger.Error("scheduled generation failed", zap.Error(err))
		payload = dailyword.FailureMessage
	}

	r.mu.Lock()
	recipients := make([]string, 0, len(r.active))
	for id := range r.active {
		recipients = append(recipients, id)
	}
	r.mu.Unlock()

	for _, id := range recipients {
		if err := r.messenger.SendText(ctx, id, payload); err != nil {
			r.logger.Error("failed to deliver daily word",
				zap.String("conversation_id", id),
				zap.Error(err))
			continue
		}
		r.logger.Debug("delivered daily word", zap.String("conversation_id", id))
	}
	r.logger.Info("daily word broadcast complete", zap.Int("recipients", len(recipients)))
}

// apologyFor maps a dispatch error onto the user-facing text for it.
func apologyFor(err error) string {
	var unknown *dispatch.UnknownModelError
	if errors.As(err, &unknown) {
		return fmt.Sprintf("Sorry, the model '%s' is not supported. Valid models: %s.",
			unknown.Model, strings.Join(unknown.Known, ", "))
	}

	var missing *dispatch.MissingCredentialsError
	if errors.As(err, &missing) {
		return fmt.Sprintf("Sorry, no %s API key is configured, so '%s' is unavailable.",
			missing.Provider, missing.Model)
	}

	var provider *dispatch.ProviderError
	if errors.As(err, &provider) {
		switch provider.Reason {
		case dispatch.ReasonAuth:
			return fmt.Sprintf("Sorry, %s rejected our credentials for '%s'. Please check the API key.",
				provider.Provider, provider.Model)
		case dispatch.ReasonModelNotFound:
			return fmt.Sprintf("Sorry, %s does not recognize the model '%s'.",
				provider.Provider, provider.Model)
		case dispatch.ReasonUnavailable:
			return fmt.Sprintf("Sorry, '%s' seems unreachable right now. Please try again in a moment.",
				provider.Model)
		default:
			return fmt.Sprintf("Sorry, I encountered an error with '%s'. Please try again.",
				provider.Model)
		}
	}

	return apologyGeneric
}
