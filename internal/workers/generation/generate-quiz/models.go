package generatequiz

type Input struct {
	UserID       int64  `json:"userId"`
	Subject      string `json:"subject"`
	Topic        string `json:"topic"`
	CustomText   string `json:"customText"`
	NumQuestions int    `json:"numQuestions"`
}

type Output struct {
	TestID         int64  `json:"testId"`
	QuestionsCount int    `json:"questionsCount"`
	Salvaged       bool   `json:"salvaged,omitempty"`
	Warning        string `json:"warning,omitempty"`
}

// Stored subject and topic for quizzes built from uploaded text.
const (
	customSubject = "Custom material"
	customTopic   = "Test from uploaded text"
)

func (o *Output) GeneratedItems() int { return o.QuestionsCount }
