package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to the database named by TEST_DATABASE_URL, or
// skips when no test database is available.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	s, err := Open(dsn, 4)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveUpsertsByFingerprint(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := Record{
		Fingerprint: "test-fp-upsert",
		Mnemonic:    "ozone drill grab",
		Status:      StatusNoBalance,
	}
	require.NoError(t, s.Save(ctx, rec))

	rec.Status = StatusFunded
	rec.Method = "direct_seed"
	rec.Accounts = []string{"0.0.1234"}
	rec.Balance = 42
	require.NoError(t, s.Save(ctx, rec))

	var status, method string
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT status, method, balance FROM test_records WHERE fingerprint = $1`,
		rec.Fingerprint).Scan(&status, &method, &balance)
	require.NoError(t, err)
	assert.Equal(t, StatusFunded, status)
	assert.Equal(t, "direct_seed", method)
	assert.Equal(t, int64(42), balance)
}

func TestSaveBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	recs := []Record{
		{Fingerprint: "test-fp-batch-1", Mnemonic: "a", Status: StatusNoBalance},
		{Fingerprint: "test-fp-batch-2", Mnemonic: "b", Status: StatusDeferred},
	}
	require.NoError(t, s.SaveBatch(ctx, recs))
	require.NoError(t, s.SaveBatch(ctx, nil))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalTested, int64(2))
}
