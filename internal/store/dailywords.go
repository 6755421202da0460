package store

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDuplicateWord reports that a daily word was already issued. The generator
// retry loop depends on distinguishing this from generic storage failure.
var ErrDuplicateWord = errors.New("daily word already exists")

// DailyWord is one generated word-of-the-day record.
type DailyWord struct {
	Word               string
	Translation        string
	UsageExample       string
	ExampleTranslation string
	Pronunciation      string
	DateAdded          time.Time
}

// KnownWord is a (word, translation) pair from the dedup ledger.
type KnownWord struct {
	Word        string
	Translation string
}

// InsertDailyWord persists a generated word. A collision on the UNIQUE word
// column surfaces as ErrDuplicateWord.
func (s *Store) InsertDailyWord(w DailyWord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := w.DateAdded
	if added.IsZero() {
		added = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO daily_words (word, translation, usage_example, example_translation, pronunciation, date_added)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		w.Word, w.Translation, w.UsageExample, w.ExampleTranslation, w.Pronunciation,
		added.Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %q", ErrDuplicateWord, w.Word)
		}
		return fmt.Errorf("failed to insert daily word: %w", err)
	}
	return nil
}

// KnownWords returns up to limit previously issued words, most recent first.
// Used to build the exclusion list in generation prompts.
func (s *Store) KnownWords(limit int) ([]KnownWord, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT word, translation FROM daily_words ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list known words: %w", err)
	}
	defer rows.Close()

	var words []KnownWord
	for rows.Next() {
		var kw KnownWord
		if err := rows.Scan(&kw.Word, &kw.Translation); err != nil {
			return nil, fmt.Errorf("failed to scan known word: %w", err)
		}
		words = append(words, kw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read known word rows: %w", err)
	}
	return words, nil
}
