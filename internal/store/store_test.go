package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"edu-content-workers/internal/common/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(database.NewPostgresFromDB(db)), mock
}

func sampleQuestions() []QuizQuestion {
	return []QuizQuestion{
		{Question: "2+2?", Options: []string{"3", "4", "5", "6"}, Correct: 1, Explanation: "Two plus two equals four, basic arithmetic."},
		{Question: "Capital of France?", Options: []string{"Rome", "Paris", "Oslo", "Bern"}, Correct: 1, Explanation: "Paris has been the capital for centuries."},
	}
}

func TestCreateTest(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO test_results`).
		WithArgs(int64(7), "Math", "Arithmetic", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	id, err := s.CreateTest(context.Background(), 7, "Math", "Arithmetic", sampleQuestions())

	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTest_DatabaseError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO test_results`).WillReturnError(errors.New("connection lost"))

	_, err := s.CreateTest(context.Background(), 7, "Math", "Arithmetic", sampleQuestions())
	assert.ErrorContains(t, err, "connection lost")
}

func TestGetTest(t *testing.T) {
	s, mock := newMockStore(t)
	content := `[{"question":"2+2?","options":["3","4","5","6"],"correct":1,"explanation":"four"}]`

	mock.ExpectQuery(`SELECT id, user_id, subject, topic, test_content, score, created_at`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "subject", "topic", "test_content", "score", "created_at"}).
			AddRow(42, 7, "Math", "Arithmetic", content, nil, time.Now()))

	q, err := s.GetTest(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, int64(7), q.UserID)
	require.Len(t, q.Questions, 1)
	assert.Equal(t, 1, q.Questions[0].Correct)
	assert.Nil(t, q.Score)
}

func TestGetTest_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, user_id`).WithArgs(int64(1)).WillReturnError(sql.ErrNoRows)

	_, err := s.GetTest(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetScore(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE test_results SET score`).
		WithArgs(75, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE test_results SET score`).
		WithArgs(75, int64(43)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, s.SetScore(context.Background(), 42, 75))
	assert.ErrorIs(t, s.SetScore(context.Background(), 43, 75), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSession(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM game_sessions`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "creator_id", "title", "subject", "topic", "material_text", "num_cards"}).
			AddRow(3, 9, "Cells", "Biology", "Cells", nil, nil))

	sess, err := s.GetSession(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, int64(9), sess.CreatorID)
	assert.Equal(t, "", sess.MaterialText)
	assert.Equal(t, 10, sess.NumCards)
}

func TestReplaceCards(t *testing.T) {
	s, mock := newMockStore(t)
	cards := []Card{
		{Question: "Q1", Answer: "A1", Explanation: "E1"},
		{Question: "Q2", Answer: "A2", Explanation: "E2"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM game_cards`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 4))
	prep := mock.ExpectPrepare(`INSERT INTO game_cards`)
	prep.ExpectExec().WithArgs(int64(3), "Q1", "A1", "E1", 0).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs(int64(3), "Q2", "A2", "E2", 1).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, s.ReplaceCards(context.Background(), 3, cards))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceCards_RollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM game_cards`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(`INSERT INTO game_cards`)
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.ReplaceCards(context.Background(), 3, []Card{{Question: "Q", Answer: "A", Explanation: "E"}})
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRecipe(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO recipes`).
		WithArgs(int64(5), "Soup", `["water","salt"]`, "Boil.", 120, 4, 2, 18, RecipeStatusPending, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	id, err := s.CreateRecipe(context.Background(), Recipe{
		UserID: 5, Title: "Soup", Ingredients: []string{"water", "salt"}, Instructions: "Boil.",
		Calories: 120, Proteins: 4, Fats: 2, Carbs: 18,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
}

func TestCreateProgram(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO training_programs`).
		WithArgs(int64(5), "Run", "1 month", `{"sunday":["rest"]}`, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))

	id, err := s.CreateProgram(context.Background(), Program{
		UserID: 5, Title: "Run", Duration: "1 month",
		Schedule: map[string][]string{"sunday": {"rest"}},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(8), id)
}

func newTestDrafts(t *testing.T) (*Drafts, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewDrafts(database.NewRedisFromClient(rdb), "draft:training-program:", time.Hour), mr
}

func TestDrafts_RoundTrip(t *testing.T) {
	d, mr := newTestDrafts(t)
	ctx := context.Background()
	p := Program{UserID: 5, Title: "Run", Duration: "1 month", Schedule: map[string][]string{"monday": {"5k"}}}

	id, err := d.Save(ctx, p)
	require.NoError(t, err)
	assert.True(t, mr.Exists("draft:training-program:"+id))
	assert.Equal(t, time.Hour, mr.TTL("draft:training-program:"+id))

	got, err := d.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, p, *got)

	require.NoError(t, d.Delete(ctx, id))
	_, err = d.Load(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDrafts_Expired(t *testing.T) {
	d, mr := newTestDrafts(t)
	ctx := context.Background()

	id, err := d.Save(ctx, Program{Title: "Run"})
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = d.Load(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
