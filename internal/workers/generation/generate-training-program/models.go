package generatetrainingprogram

import "edu-content-workers/internal/store"

type Input struct {
	UserID      int64  `json:"userId"`
	Goal        string `json:"goal"`
	Level       string `json:"level"`
	Duration    string `json:"duration"`
	Preferences string `json:"preferences"`
}

// Output carries the unsaved program. save-training-program persists it
// by DraftID.
type Output struct {
	DraftID string        `json:"draftId"`
	Program store.Program `json:"program"`
	Warning string        `json:"warning,omitempty"`
}
