package generaterecipe

import (
	"context"
	stderrors "errors"
	"testing"

	"edu-content-workers/internal/common/errors"
	"edu-content-workers/internal/common/genai"
	"edu-content-workers/internal/common/logger"
	"edu-content-workers/internal/store"
	"edu-content-workers/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const longInstructions = "1. Rinse the rice. 2. Boil it for twelve minutes. 3. Fry the chicken until golden."

func newTestHandler(t *testing.T, gen genai.TextGenerator) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	st, mock := testutil.MockStore(t)
	h, err := NewHandler(HandlerOptions{Generator: gen, Store: st, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return h, mock
}

func errorCode(t *testing.T, err error) errors.ErrorCode {
	t.Helper()
	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr), "expected StandardError, got %T: %v", err, err)
	return stdErr.Code
}

func TestExecute_Success(t *testing.T) {
	reply := `Sure! {"title": "Chicken pilaf", "ingredients": ["200g chicken", "150g rice"], "instructions": "` + longInstructions + `", "calories": "450", "proteins": 38.6, "fats": 12, "carbs": 45} Enjoy.`
	gen := &testutil.FakeGenerator{Reply: reply}
	h, mock := newTestHandler(t, gen)

	mock.ExpectQuery(`INSERT INTO recipes`).
		WithArgs(int64(5), "Chicken pilaf", `["200g chicken","150g rice"]`, longInstructions, 450, 38, 12, 45, store.RecipeStatusPending, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(77))

	out, err := h.Execute(context.Background(), &Input{UserID: 5, Cuisine: "Uzbek"})

	require.NoError(t, err)
	assert.Equal(t, int64(77), out.RecipeID)
	assert.Equal(t, store.RecipeStatusPending, out.Status)
	assert.Equal(t, 450, out.Recipe.Calories)
	assert.NoError(t, mock.ExpectationsWereMet())

	req := gen.LastRequest()
	assert.Equal(t, 0.7, req.Temperature)
	assert.Contains(t, req.Prompt, "Cuisine: Uzbek")
	assert.Contains(t, req.Prompt, "Max calories: 500 kcal")
}

func TestExecute_RepairsIngredientsAndInstructions(t *testing.T) {
	reply := `{"title": "Toast", "ingredients": "bread", "instructions": "Toast it.", "calories": 90, "proteins": 3, "fats": 1, "carbs": 17}`
	h, mock := newTestHandler(t, &testutil.FakeGenerator{Reply: reply})

	mock.ExpectQuery(`INSERT INTO recipes`).
		WithArgs(int64(5), "Toast", `[]`, defaultInstructions, 90, 3, 1, 17, store.RecipeStatusPending, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(78))

	out, err := h.Execute(context.Background(), &Input{UserID: 5})

	require.NoError(t, err)
	assert.Empty(t, out.Recipe.Ingredients)
	assert.Equal(t, defaultInstructions, out.Recipe.Instructions)
}

func TestExecute_MissingFields(t *testing.T) {
	reply := `{"title": "Soup", "ingredients": ["water"], "instructions": "` + longInstructions + `", "calories": 100}`
	h, _ := newTestHandler(t, &testutil.FakeGenerator{Reply: reply})

	_, err := h.Execute(context.Background(), &Input{UserID: 5})

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeMissingRequiredField, stdErr.Code)
	assert.Equal(t, []string{"proteins", "fats", "carbs"}, stdErr.Metadata["missingFields"])
}

func TestExecute_Unparseable(t *testing.T) {
	h, _ := newTestHandler(t, &testutil.FakeGenerator{Reply: `{"title": "Soup", "ingredients": [}`})

	_, err := h.Execute(context.Background(), &Input{UserID: 5})

	assert.Equal(t, errors.ErrCodeUnparseable, errorCode(t, err))
}

func TestExecute_GeneratorUnavailable(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	_, err := h.Execute(context.Background(), &Input{UserID: 5})

	assert.Equal(t, errors.ErrCodeGeneratorUnavailable, errorCode(t, err))
}

func TestExecute_DatabaseError(t *testing.T) {
	reply := `{"title": "Toast", "ingredients": ["bread"], "instructions": "` + longInstructions + `", "calories": 90, "proteins": 3, "fats": 1, "carbs": 17}`
	h, mock := newTestHandler(t, &testutil.FakeGenerator{Reply: reply})
	mock.ExpectQuery(`INSERT INTO recipes`).WillReturnError(stderrors.New("relation does not exist"))

	_, err := h.Execute(context.Background(), &Input{UserID: 5})

	assert.Equal(t, errors.ErrCodeDatabaseInsertFailed, errorCode(t, err))
}
