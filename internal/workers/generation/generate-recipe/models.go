package generaterecipe

import "edu-content-workers/internal/store"

type Input struct {
	UserID      int64  `json:"userId"`
	DishType    string `json:"dishType"`
	Cuisine     string `json:"cuisine"`
	Dietary     string `json:"dietary"`
	MaxCalories int    `json:"maxCalories"`
	Notes       string `json:"notes"`
}

type Output struct {
	RecipeID int64        `json:"recipeId"`
	Status   string       `json:"status"`
	Recipe   store.Recipe `json:"recipe"`
}
