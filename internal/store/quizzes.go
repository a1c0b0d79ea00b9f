package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// QuizQuestion is one validated multiple choice question.
type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation"`
}

// Quiz is a stored test_results row.
type Quiz struct {
	ID        int64
	UserID    int64
	Subject   string
	Topic     string
	Questions []QuizQuestion
	Score     *int
	CreatedAt time.Time
}

// CreateTest stores a generated quiz without a score and returns its id.
func (s *Store) CreateTest(ctx context.Context, userID int64, subject, topic string, questions []QuizQuestion) (int64, error) {
	content, err := json.Marshal(questions)
	if err != nil {
		return 0, fmt.Errorf("marshal questions: %w", err)
	}

	var id int64
	err = s.pg.QueryRow(ctx, `
		INSERT INTO test_results (user_id, subject, topic, test_content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		userID, subject, topic, string(content), time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert test result: %w", err)
	}
	return id, nil
}

// GetTest loads a quiz by id. ErrNotFound when it does not exist.
func (s *Store) GetTest(ctx context.Context, id int64) (*Quiz, error) {
	var (
		q       Quiz
		content string
		score   sql.NullInt64
	)
	err := s.pg.QueryRow(ctx, `
		SELECT id, user_id, subject, topic, test_content, score, created_at
		FROM test_results
		WHERE id = $1`, id,
	).Scan(&q.ID, &q.UserID, &q.Subject, &q.Topic, &content, &score, &q.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	if err := json.Unmarshal([]byte(content), &q.Questions); err != nil {
		return nil, fmt.Errorf("decode test content %d: %w", id, err)
	}
	if score.Valid {
		v := int(score.Int64)
		q.Score = &v
	}
	return &q, nil
}

// SetScore records the grade of a quiz.
func (s *Store) SetScore(ctx context.Context, id int64, score int) error {
	res, err := s.pg.Exec(ctx, `UPDATE test_results SET score = $1 WHERE id = $2`, score, id)
	if err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
