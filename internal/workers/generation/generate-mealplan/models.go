package generatemealplan

type Input struct {
	UserID         int64  `json:"userId"`
	CaloriesTarget int    `json:"caloriesTarget"`
	MealsCount     int    `json:"mealsCount"`
	Preferences    string `json:"preferences"`
	Restrictions   string `json:"restrictions"`
}

// Meal is one entry of a daily plan. Macros are grams.
type Meal struct {
	MealType  string   `json:"meal_type"`
	FoodItems []string `json:"food_items"`
	Calories  int      `json:"calories"`
	Proteins  int      `json:"proteins"`
	Fats      int      `json:"fats"`
	Carbs     int      `json:"carbs"`
}

type Output struct {
	Meals         []Meal `json:"meals"`
	TotalCalories int    `json:"totalCalories"`
	Salvaged      bool   `json:"salvaged"`
	Warning       string `json:"warning,omitempty"`
}

func (o *Output) GeneratedItems() int { return len(o.Meals) }
