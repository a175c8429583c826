package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/cognicore/tactica/pkg/tactica/store"
	"github.com/cognicore/tactica/pkg/tactica/store/storetest"
)

// These tests need a disposable database; every table is truncated.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TACTICA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TACTICA_TEST_POSTGRES_DSN not set")
	}
	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		st, err := Open(ctx, dsn)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if _, err := st.(*pgStore).pool.Exec(ctx, `TRUNCATE session_plans CASCADE`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { st.Close() })
		return st
	})
}

func TestOpenRejectsBadDSN(t *testing.T) {
	if _, err := Open(context.Background(), "postgres://%zz"); err == nil {
		t.Error("expected parse error")
	}
}
