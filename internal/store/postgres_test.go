package store

import (
	"context"
	"errors"
	"testing"
)

func TestEnsureDatabaseBadDSN(t *testing.T) {
	err := EnsureDatabase(context.Background(), "postgres://%zz", "movies")
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("EnsureDatabase() = %v, want ErrStorage", err)
	}
}
