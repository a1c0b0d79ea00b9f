package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Weekdays in schedule order.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Program is a weekly training program.
type Program struct {
	UserID   int64               `json:"userId"`
	Title    string              `json:"title"`
	Duration string              `json:"duration"`
	Schedule map[string][]string `json:"schedule"`
}

func (s *Store) CreateProgram(ctx context.Context, p Program) (int64, error) {
	schedule, err := json.Marshal(p.Schedule)
	if err != nil {
		return 0, fmt.Errorf("marshal schedule: %w", err)
	}

	var id int64
	err = s.pg.QueryRow(ctx, `
		INSERT INTO training_programs (user_id, title, duration, schedule, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		p.UserID, p.Title, p.Duration, string(schedule), time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert training program: %w", err)
	}
	return id, nil
}
