package store

import "fmt"

// UpsertSubscription inserts or replaces a subscription row. Opting out keeps
// the row with active=false so the identifier survives for re-enabling.
func (s *Store) UpsertSubscription(conversationID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO subscriptions (conversation_id, active) VALUES (?, ?)",
		conversationID, active,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

// ActiveSubscriptions returns the set of conversation ids currently opted in.
func (s *Store) ActiveSubscriptions() (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT conversation_id FROM subscriptions WHERE active = TRUE")
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	active := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		active[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subscription rows: %w", err)
	}
	return active, nil
}
