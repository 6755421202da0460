package store

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Message is one persisted conversation turn.
type Message struct {
	ConversationID string
	Role           string
	Content        string
	Timestamp      time.Time
}

// BroadcastMarker identifies daily-word broadcast payloads. Turns carrying it
// are deliberately kept out of the conversation log so the broadcast never
// pollutes the model context.
const BroadcastMarker = "Dutch Word of the Day"

// AppendMessage durably records one turn with a generated timestamp.
func (s *Store) AppendMessage(conversationID, role, content string) error {
	if strings.Contains(content, BroadcastMarker) {
		s.logger.Debug("skipping storage of daily word message",
			zap.String("conversation_id", conversationID))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO messages (conversation_id, role, content, timestamp) VALUES (?, ?, ?, ?)",
		conversationID, role, content, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}

	s.logger.Debug("stored message",
		zap.String("conversation_id", conversationID),
		zap.String("role", role),
		zap.Int("content_len", len(content)))
	return nil
}

// LoadHistory returns the most recent limit messages for a conversation,
// oldest first. A non-positive limit is a caller error.
func (s *Store) LoadHistory(conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("history limit must be positive, got %d", limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT role, content, timestamp
		 FROM messages
		 WHERE conversation_id = ?
		 ORDER BY timestamp DESC, id DESC
		 LIMIT ?`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var history []Message
	for rows.Next() {
		var m Message
		var ts string
		if err := rows.Scan(&m.Role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.ConversationID = conversationID
		m.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		history = append(history, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}

	// The query walks newest-first to apply the cap; flip back to
	// chronological order for the caller.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}
