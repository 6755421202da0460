// Package session enforces the bounded-context chat protocol: per
// conversation it maintains the capped history window, injects the tutor
// system prompt exactly once, and records turns around each dispatch.
package session

import (
	"go.uber.org/zap"

	"taalbot/internal/dispatch"
	"taalbot/internal/store"
)

// DefaultSystemPrompt establishes the tutor persona. It is never persisted as
// a message row; it is injected virtually whenever the loaded window does not
// already start with a system turn.
const DefaultSystemPrompt = `You are a kind and patient Dutch language teacher, helping beginners learn Dutch in a simple, clear, and encouraging way.

Your teaching style:
Easy to understand - Use simple words and short sentences.
Encouraging - Praise the learner and gently correct mistakes.
Interactive - Ask simple questions to help them practice.
Teaching Approach:
Translations & Explanations - Always provide both Dutch and English translations. If the user asks for a translation, always give one.
Short, Simple Sentences - Avoid complex grammar at the start.
Practice & Encouragement - Ask follow-up questions in Dutch.
Corrections with Examples - If they make a mistake, correct them nicely and give an example.
Pronunciation Help - If needed, break down words phonetically.
Word of the Day - When the user asks, provide the word, its article, pronunciation, and a sample sentence in both Dutch and English.
Use 70% Dutch and 30% English for immersion, but always translate if the user requests it. If they seem confused, offer extra help in English.`

// DefaultWindow caps how many messages a turn carries to the model.
const DefaultWindow = 20

// MessageStore is the slice of the record store the session layer needs.
type MessageStore interface {
	AppendMessage(conversationID, role, content string) error
	LoadHistory(conversationID string, limit int) ([]store.Message, error)
}

// Sessions assembles dispatch-ready message sequences per conversation.
type Sessions struct {
	store        MessageStore
	systemPrompt string
	window       int
	logger       *zap.Logger
}

// New builds the session layer. Empty systemPrompt and non-positive window
// fall back to the defaults.
func New(st MessageStore, systemPrompt string, window int, logger *zap.Logger) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Sessions{store: st, systemPrompt: systemPrompt, window: window, logger: logger}
}

// PrepareTurn records the user turn, loads the capped history and returns the
// message sequence ready for dispatch. Persistence is best-effort: a storage
// failure is logged and the turn still goes out with the user text appended
// in memory.
func (s *Sessions) PrepareTurn(conversationID, userText string) []dispatch.Message {
	if err := s.store.AppendMessage(conversationID, dispatch.RoleUser, userText); err != nil {
		s.logger.Error("failed to store user turn",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
	}

	history, err := s.store.LoadHistory(conversationID, s.window)
	if err != nil {
		s.logger.Error("failed to load history",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
		history = nil
	}

	messages := make([]dispatch.Message, 0, len(history)+2)
	if len(history) == 0 || history[0].Role != dispatch.RoleSystem {
		messages = append(messages, dispatch.Message{Role: dispatch.RoleSystem, Content: s.systemPrompt})
	}
	for _, m := range history {
		messages = append(messages, dispatch.Message{Role: m.Role, Content: m.Content})
	}

	// If the append above failed (or was filtered), the loaded window ends
	// without the current user text; patch it in so the model still sees
	// the turn.
	last := messages[len(messages)-1]
	if last.Role != dispatch.RoleUser || last.Content != userText {
		messages = append(messages, dispatch.Message{Role: dispatch.RoleUser, Content: userText})
	}

	s.logger.Debug("prepared turn",
		zap.String("conversation_id", conversationID),
		zap.Int("messages", len(messages)))
	return messages
}

// RecordReply appends the assistant turn, best-effort.
func (s *Sessions) RecordReply(conversationID, assistantText string) {
	if err := s.store.AppendMessage(conversationID, dispatch.RoleAssistant, assistantText); err != nil {
		s.logger.Error("failed to store assistant turn",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
	}
}
