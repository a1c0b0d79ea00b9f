// Package testutil holds fakes shared by the worker tests.
package testutil

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"sync"
	"testing"

	"edu-content-workers/internal/common/database"
	"edu-content-workers/internal/common/genai"
	"edu-content-workers/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// FakeGenerator replays a canned reply and records the requests it saw.
type FakeGenerator struct {
	Reply string
	Err   error

	mu       sync.Mutex
	requests []genai.Request
}

func (f *FakeGenerator) Complete(ctx context.Context, req genai.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.Reply, f.Err
}

// LastRequest returns the most recent request, or the zero Request.
func (f *FakeGenerator) LastRequest() genai.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return genai.Request{}
	}
	return f.requests[len(f.requests)-1]
}

func (f *FakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// MockStore returns a Store backed by sqlmock.
func MockStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.New(database.NewPostgresFromDB(db)), mock
}

// MiniRedis returns a client pointed at an in-process Redis.
func MiniRedis(t *testing.T) (*database.RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return database.NewRedisFromClient(rdb), mr
}

// JSONArg matches a JSON encoded string argument by decoding it into a
// fresh T and handing it to check.
func JSONArg[T any](check func(T) bool) sqlmock.Argument {
	return jsonArg[T]{check: check}
}

type jsonArg[T any] struct {
	check func(T) bool
}

func (a jsonArg[T]) Match(v driver.Value) bool {
	var s []byte
	switch x := v.(type) {
	case string:
		s = []byte(x)
	case []byte:
		s = x
	default:
		return false
	}
	var decoded T
	if err := json.Unmarshal(s, &decoded); err != nil {
		return false
	}
	return a.check(decoded)
}
