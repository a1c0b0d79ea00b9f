package gradequiz

// Input answers map the question index ("0", "1", ...) to the chosen option.
type Input struct {
	UserID  int64                  `json:"userId"`
	TestID  int64                  `json:"testId"`
	Answers map[string]interface{} `json:"answers"`
}

type Output struct {
	Score   int `json:"score"`
	Correct int `json:"correct"`
	Total   int `json:"total"`
}
