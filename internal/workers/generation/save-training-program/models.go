package savetrainingprogram

type Input struct {
	UserID  int64  `json:"userId"`
	DraftID string `json:"draftId"`
}

type Output struct {
	ProgramID int64  `json:"programId"`
	Title     string `json:"title"`
}
