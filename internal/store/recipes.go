package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RecipeStatusPending marks a recipe awaiting cook approval.
const RecipeStatusPending = "pending"

type Recipe struct {
	UserID       int64    `json:"-"`
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions string   `json:"instructions"`
	Calories     int      `json:"calories"`
	Proteins     int      `json:"proteins"`
	Fats         int      `json:"fats"`
	Carbs        int      `json:"carbs"`
}

// CreateRecipe stores a generated recipe as pending and returns its id.
func (s *Store) CreateRecipe(ctx context.Context, r Recipe) (int64, error) {
	ingredients, err := json.Marshal(r.Ingredients)
	if err != nil {
		return 0, fmt.Errorf("marshal ingredients: %w", err)
	}

	var id int64
	err = s.pg.QueryRow(ctx, `
		INSERT INTO recipes (user_id, title, ingredients, instructions, calories, proteins, fats, carbs, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		r.UserID, r.Title, string(ingredients), r.Instructions,
		r.Calories, r.Proteins, r.Fats, r.Carbs,
		RecipeStatusPending, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert recipe: %w", err)
	}
	return id, nil
}
