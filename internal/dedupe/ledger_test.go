package dedupe

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hbar_recovery/internal/checkpoint"
)

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func openStore(t *testing.T, dir string) *checkpoint.Store {
	t.Helper()
	store, err := checkpoint.OpenStore(dir, quietLog())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestFingerprintIgnoresProducer(t *testing.T) {
	a := Fingerprint([]string{"abandon", "ability", "able"})
	b := Fingerprint([]string{"abandon", "ability", "able"})
	c := Fingerprint([]string{"able", "ability", "abandon"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestExactlyOneClaimPerFingerprint(t *testing.T) {
	ledger, err := NewLedger(openStore(t, t.TempDir()), 0)
	require.NoError(t, err)

	fp := Fingerprint([]string{"abandon", "ability"})

	var granted int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claim, err := ledger.TestAndMark(fp)
			assert.NoError(t, err)
			if claim == ProceedToTest {
				atomic.AddInt64(&granted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), granted)
}

func TestDurableMarkSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, dir)

	ledger, err := NewLedger(store, 0)
	require.NoError(t, err)

	fp := Fingerprint([]string{"abandon", "about"})
	claim, err := ledger.TestAndMark(fp)
	require.NoError(t, err)
	require.Equal(t, ProceedToTest, claim)
	require.NoError(t, ledger.MarkDone(fp))

	// A fresh ledger over the same store must refuse the fingerprint.
	fresh, err := NewLedger(store, 0)
	require.NoError(t, err)
	claim, err = fresh.TestAndMark(fp)
	require.NoError(t, err)
	assert.Equal(t, AlreadyTested, claim)
}

func TestUnmarkedClaimIsRetriableAfterRestart(t *testing.T) {
	store := openStore(t, t.TempDir())

	ledger, err := NewLedger(store, 0)
	require.NoError(t, err)

	fp := Fingerprint([]string{"abandon", "absent"})
	claim, err := ledger.TestAndMark(fp)
	require.NoError(t, err)
	require.Equal(t, ProceedToTest, claim)
	// No MarkDone: the test never finished.

	fresh, err := NewLedger(store, 0)
	require.NoError(t, err)
	claim, err = fresh.TestAndMark(fp)
	require.NoError(t, err)
	assert.Equal(t, ProceedToTest, claim)
}

func TestDistinctFingerprintsDoNotCollide(t *testing.T) {
	ledger, err := NewLedger(openStore(t, t.TempDir()), 0)
	require.NoError(t, err)

	for _, words := range [][]string{
		{"abandon", "ability"},
		{"ability", "abandon"},
		{"abandon", "able"},
	} {
		claim, err := ledger.TestAndMark(Fingerprint(words))
		require.NoError(t, err)
		assert.Equal(t, ProceedToTest, claim)
	}
}
