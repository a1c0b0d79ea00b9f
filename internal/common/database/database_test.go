package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresClient, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresFromDB(db), mock
}

func TestWithTx_Commits(t *testing.T) {
	pg, mock := newMockPostgres(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM game_cards").WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := pg.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM game_cards WHERE session_id = $1", 7)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBack(t *testing.T) {
	pg, mock := newMockPostgres(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("insert failed")
	err := pg.WithTx(context.Background(), func(tx *sql.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecScript(t *testing.T) {
	pg, mock := newMockPostgres(t)
	path := filepath.Join(t.TempDir(), "schema.sql")
	require.NoError(t, os.WriteFile(path, []byte("CREATE TABLE IF NOT EXISTS recipes (id BIGSERIAL);"), 0o600))

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS recipes").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, pg.ExecScript(context.Background(), path))
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, pg.ExecScript(context.Background(), filepath.Join(t.TempDir(), "missing.sql")))
}

func TestRedisJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	type draft struct {
		Title string `json:"title"`
	}
	require.NoError(t, c.SetJSON(ctx, "draft:1", draft{Title: "Strength"}, time.Minute))

	var got draft
	require.NoError(t, c.GetJSON(ctx, "draft:1", &got))
	assert.Equal(t, "Strength", got.Title)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.GetJSON(ctx, "draft:1", &got), ErrCacheMiss)

	require.NoError(t, mr.Set("draft:2", "not json"))
	assert.ErrorContains(t, c.GetJSON(ctx, "draft:2", &got), "decode draft:2")

	require.NoError(t, c.Del(ctx, "draft:2"))
	assert.False(t, mr.Exists("draft:2"))
}
