package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Session is a flashcard game session.
type Session struct {
	ID           int64
	CreatorID    int64
	Title        string
	Subject      string
	Topic        string
	MaterialText string
	NumCards     int
}

// Card is one flashcard of a session deck.
type Card struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Explanation string `json:"explanation"`
}

func (s *Store) GetSession(ctx context.Context, id int64) (*Session, error) {
	var (
		sess     Session
		material sql.NullString
		numCards sql.NullInt64
	)
	err := s.pg.QueryRow(ctx, `
		SELECT id, creator_id, title, subject, topic, material_text, num_cards
		FROM game_sessions
		WHERE id = $1`, id,
	).Scan(&sess.ID, &sess.CreatorID, &sess.Title, &sess.Subject, &sess.Topic, &material, &numCards)
	if err != nil {
		return nil, notFound(err)
	}

	sess.MaterialText = material.String
	sess.NumCards = 10
	if numCards.Valid && numCards.Int64 > 0 {
		sess.NumCards = int(numCards.Int64)
	}
	return &sess, nil
}

// ReplaceCards stores cards as the session deck in one transaction.
// Regenerating replaces the previous deck.
func (s *Store) ReplaceCards(ctx context.Context, sessionID int64, cards []Card) error {
	return s.pg.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM game_cards WHERE session_id = $1`, sessionID); err != nil {
			return fmt.Errorf("delete previous cards: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO game_cards (session_id, question, answer, explanation, order_index)
			VALUES ($1, $2, $3, $4, $5)`)
		if err != nil {
			return fmt.Errorf("prepare card insert: %w", err)
		}
		defer stmt.Close()

		for i, c := range cards {
			if _, err := stmt.ExecContext(ctx, sessionID, c.Question, c.Answer, c.Explanation, i); err != nil {
				return fmt.Errorf("insert card %d: %w", i, err)
			}
		}
		return nil
	})
}
