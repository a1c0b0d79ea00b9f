package generateflashcards

type Input struct {
	SessionID int64 `json:"sessionId"`
	UserID    int64 `json:"userId"`
}

type Output struct {
	SessionID  int64  `json:"sessionId"`
	CardsCount int    `json:"cardsCount"`
	Salvaged   bool   `json:"salvaged"`
	Warning    string `json:"warning,omitempty"`
}

func (o *Output) GeneratedItems() int { return o.CardsCount }
