package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hbar_recovery/internal/checkpoint"
	"hbar_recovery/internal/config"
	"hbar_recovery/internal/dedupe"
	"hbar_recovery/internal/derive"
	"hbar_recovery/internal/oracle"
	"hbar_recovery/internal/pattern"
	"hbar_recovery/internal/store"
	"hbar_recovery/internal/vocab"
)

// The vocabulary is itself a valid 12-word mnemonic with distinct words,
// so the exact-match candidate passes checksum validation on the first
// draw.
const fundedPhrase = "ozone drill grab fiber curtain grace pudding thank cruise elder eight picnic"

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

// fakeOracle answers lookups from a canned funding table.
type fakeOracle struct {
	mu     sync.Mutex
	funded map[string][]oracle.Account
	calls  int
}

func (f *fakeOracle) AccountsByPublicKey(_ context.Context, keyHex string) ([]oracle.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.funded[keyHex], nil
}

// memStore collects saved records in memory and remembers batch sizes.
type memStore struct {
	mu      sync.Mutex
	records []store.Record
	batches []int
}

func (m *memStore) Save(_ context.Context, rec store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	m.batches = append(m.batches, 1)
	return nil
}

func (m *memStore) SaveBatch(_ context.Context, recs []store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, recs...)
	m.batches = append(m.batches, len(recs))
	return nil
}

func (m *memStore) byStatus(status string) []store.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Record
	for _, rec := range m.records {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out
}

func testConfig() config.Config {
	return config.Config{
		PhraseLength:    12,
		Workers:         2,
		ShutdownTimeout: 5 * time.Second,
		SampleCap:       5,
		ExhaustiveMode:  pattern.ModeCombinations,
		CheckpointEvery: 10,
		BatchSize:       4,
	}
}

func buildEngine(t *testing.T, cfg config.Config, orc Oracle, records RecordStore) *Engine {
	t.Helper()
	log := quietLog()

	v := vocab.FromWords(strings.Fields(fundedPhrase))
	gen := pattern.New(v, cfg.PhraseLength, pattern.Options{
		SampleCap:      cfg.SampleCap,
		ExhaustiveMode: cfg.ExhaustiveMode,
	}, log)

	ckpt, err := checkpoint.OpenStore(t.TempDir(), log)
	require.NoError(t, err)
	t.Cleanup(func() { ckpt.Close() })

	sched := checkpoint.NewManager(gen, ckpt, cfg.CheckpointEvery, log)
	ledger, err := dedupe.NewLedger(ckpt, 0)
	require.NoError(t, err)

	deriver := derive.NewEngine([]string{""}, nil)
	return New(cfg, sched, deriver, ledger, orc, records, log)
}

func fundingTableFor(t *testing.T, phrase string) map[string][]oracle.Account {
	t.Helper()
	deriver := derive.NewEngine(nil, []string{"direct_seed"})
	results := deriver.DeriveAll(strings.Fields(phrase))
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	return map[string][]oracle.Account{
		results[0].Address: {{AccountID: "0.0.777", Balance: 123456}},
	}
}

func TestRunFindsFundedWallet(t *testing.T) {
	orc := &fakeOracle{funded: fundingTableFor(t, fundedPhrase)}
	records := &memStore{}
	eng := buildEngine(t, testConfig(), orc, records)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()

	var finding Finding
	select {
	case finding = <-eng.Findings():
	case <-ctx.Done():
		t.Fatal("no finding before timeout")
	}
	cancel()
	require.NoError(t, <-runErr)

	assert.Equal(t, fundedPhrase, finding.Mnemonic)
	assert.Equal(t, "direct_seed", finding.Method)
	assert.Equal(t, []string{"0.0.777"}, finding.Accounts)
	assert.Equal(t, int64(123456), finding.Balance)
	assert.Equal(t, "exact", finding.PatternID)

	funded := records.byStatus(store.StatusFunded)
	require.Len(t, funded, 1)
	assert.Equal(t, fundedPhrase, funded[0].Mnemonic)
	assert.Equal(t, "direct_seed", funded[0].Method)
	assert.Equal(t, int64(123456), funded[0].Balance)

	stats := eng.Stats()
	assert.Equal(t, int64(1), stats.Funded)
	assert.GreaterOrEqual(t, stats.Tested, int64(1))
}

func TestInvalidCandidatesAreCountedNotRecorded(t *testing.T) {
	orc := &fakeOracle{funded: map[string][]oracle.Account{}}
	records := &memStore{}
	eng := buildEngine(t, testConfig(), orc, records)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()

	// Let the workers churn through a batch of candidates, almost all of
	// which fail the checksum.
	require.Eventually(t, func() bool {
		return eng.Stats().Tested >= 50
	}, 30*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-runErr)

	stats := eng.Stats()
	assert.Greater(t, stats.Invalid, int64(0))
	assert.Empty(t, records.byStatus(store.StatusInvalidChecksum))
}

// gatedOracle blocks every lookup until released, simulating a slow
// mirror node.
type gatedOracle struct {
	inner   *fakeOracle
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedOracle) AccountsByPublicKey(ctx context.Context, keyHex string) ([]oracle.Account, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.inner.AccountsByPublicKey(ctx, keyHex)
}

func TestAbandonedWorkerFindingAfterDrainTimeout(t *testing.T) {
	// A worker still in flight when the drain timeout expires may find a
	// funded wallet after Run has returned. That must not crash and the
	// record must still be persisted.
	orc := &gatedOracle{
		inner:   &fakeOracle{funded: fundingTableFor(t, fundedPhrase)},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	records := &memStore{}
	cfg := testConfig()
	cfg.Workers = 1
	cfg.ShutdownTimeout = 10 * time.Millisecond
	eng := buildEngine(t, cfg, orc, records)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()

	<-orc.started
	cancel()
	require.NoError(t, <-runErr, "run must return cleanly while the worker is stuck")

	// Release the abandoned worker; its finding and record land after Run.
	close(orc.release)
	for range eng.Findings() {
	}

	funded := records.byStatus(store.StatusFunded)
	require.Len(t, funded, 1)
	assert.Equal(t, fundedPhrase, funded[0].Mnemonic)
	assert.Equal(t, int64(1), eng.Stats().Funded)
}

func TestRecordsAreWrittenInBatches(t *testing.T) {
	orc := &fakeOracle{funded: map[string][]oracle.Account{}}
	records := &memStore{}
	cfg := testConfig()
	cfg.Workers = 1
	cfg.BatchSize = 3
	cfg.RecordInvalid = true
	eng := buildEngine(t, cfg, orc, records)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()

	require.Eventually(t, func() bool {
		return eng.Stats().Tested >= 30
	}, 30*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-runErr)
	for range eng.Findings() {
	}

	records.mu.Lock()
	defer records.mu.Unlock()
	require.NotEmpty(t, records.batches)
	full := 0
	for _, size := range records.batches {
		assert.LessOrEqual(t, size, 3)
		if size == 3 {
			full++
		}
	}
	assert.Greater(t, full, 0, "at least one full batch expected")
	assert.GreaterOrEqual(t, len(records.records), 9)
}

func TestDuplicateCandidatesAreSkipped(t *testing.T) {
	// Single worker, a pre-marked fingerprint for the exact-match
	// candidate: the engine must skip it without an oracle call for it.
	orc := &fakeOracle{funded: map[string][]oracle.Account{}}
	records := &memStore{}
	cfg := testConfig()
	cfg.Workers = 1
	eng := buildEngine(t, cfg, orc, records)

	fp := dedupe.Fingerprint(strings.Fields(fundedPhrase))
	require.NoError(t, eng.ledger.MarkDone(fp))

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()

	require.Eventually(t, func() bool {
		return eng.Stats().Skipped >= 1
	}, 30*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-runErr)

	assert.Empty(t, records.byStatus(store.StatusFunded))
}
