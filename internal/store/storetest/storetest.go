// Package storetest opens throwaway in-memory stores for tests.
package storetest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/Individual-1/notifier/internal/dbx"
	"github.com/Individual-1/notifier/internal/logging"
	"github.com/Individual-1/notifier/internal/store"
)

var seq atomic.Int64

// DSN returns a fresh shared-cache in-memory SQLite DSN.
func DSN() string {
	return fmt.Sprintf("file:notifier_test_%d?mode=memory&cache=shared", seq.Add(1))
}

// New returns a migrated SQLite store closed at test cleanup.
func New(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), dbx.DialectSQLite, DSN(), logging.Discard())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
