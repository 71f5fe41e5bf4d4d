// Package engine owns the worker pool. Each worker pulls a candidate,
// validates its checksum, claims its fingerprint, derives keys under every
// method, checks them against the oracle, and persists one atomic test
// record. Per-candidate failures never escape the loop; only a checkpoint
// write failure or total generator exhaustion stops the run.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"hbar_recovery/internal/checkpoint"
	"hbar_recovery/internal/config"
	"hbar_recovery/internal/dedupe"
	"hbar_recovery/internal/derive"
	"hbar_recovery/internal/mnemonic"
	"hbar_recovery/internal/oracle"
	"hbar_recovery/internal/pattern"
	"hbar_recovery/internal/store"
)

// Oracle is the balance lookup surface the engine consumes.
type Oracle interface {
	AccountsByPublicKey(ctx context.Context, keyHex string) ([]oracle.Account, error)
}

// RecordStore persists test records.
type RecordStore interface {
	Save(ctx context.Context, rec store.Record) error
	SaveBatch(ctx context.Context, recs []store.Record) error
}

// Finding is a funded discovery. The run continues after reporting one;
// multiple findings are possible.
type Finding struct {
	Mnemonic  string
	Method    string
	Accounts  []string
	Balance   int64
	PatternID string
	Ordinal   uint64
}

// Stats is a point-in-time progress snapshot.
type Stats struct {
	Tested   int64
	Invalid  int64
	Skipped  int64
	Funded   int64
	Deferred int64
	Errors   int64
}

// Engine coordinates the workers.
type Engine struct {
	cfg     config.Config
	sched   *checkpoint.Manager
	deriver *derive.Engine
	ledger  *dedupe.Ledger
	oracle  Oracle
	records RecordStore
	log     *logrus.Logger

	tested   int64
	invalid  int64
	skipped  int64
	funded   int64
	deferred int64
	errored  int64

	findings chan Finding

	fatalOnce sync.Once
	fatalErr  error
}

// New wires the engine together.
func New(cfg config.Config, sched *checkpoint.Manager, deriver *derive.Engine,
	ledger *dedupe.Ledger, orc Oracle, records RecordStore, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		cfg:      cfg,
		sched:    sched,
		deriver:  deriver,
		ledger:   ledger,
		oracle:   orc,
		records:  records,
		log:      log,
		findings: make(chan Finding, 16),
	}
}

// Findings exposes funded discoveries. The channel closes once the last
// worker has exited, which can be after Run returns when the drain timeout
// abandons in-flight candidates.
func (e *Engine) Findings() <-chan Finding { return e.findings }

// Stats returns current counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Tested:   atomic.LoadInt64(&e.tested),
		Invalid:  atomic.LoadInt64(&e.invalid),
		Skipped:  atomic.LoadInt64(&e.skipped),
		Funded:   atomic.LoadInt64(&e.funded),
		Deferred: atomic.LoadInt64(&e.deferred),
		Errors:   atomic.LoadInt64(&e.errored),
	}
}

// Run blocks until ctx is cancelled or a fatal condition occurs. On
// cancellation it stops pulling new candidates, lets in-flight work finish
// bounded by the shutdown timeout, and flushes the checkpoint. Abandoned
// in-flight candidates are safe: their cursors were checkpointed before
// dispatch, so a resumed run regenerates them.
func (e *Engine) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fail := func(err error) {
		e.fatalOnce.Do(func() {
			e.fatalErr = err
			e.log.WithError(err).Error("fatal engine condition, stopping run")
		})
		cancel()
	}

	var wg sync.WaitGroup
	for i := 0; i < e.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.workerLoop(runCtx, fail)
		}()
	}

	if e.cfg.ProgressEvery > 0 {
		go e.reportProgress(runCtx)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		// Abandoned workers may still report a finding after the drain
		// timeout, so the channel stays open until the last one exits.
		close(e.findings)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		e.log.Info("shutdown signal received, draining in-flight candidates")
		select {
		case <-done:
		case <-time.After(e.cfg.ShutdownTimeout):
			e.log.Warn("drain timeout; unfinished candidates will be regenerated on resume")
		}
	}

	if err := e.sched.Flush(); err != nil {
		// Losing the final snapshot costs only re-testing; losing it
		// silently would be worse, so surface it.
		if e.fatalErr == nil {
			e.fatalErr = err
		}
	}
	return e.fatalErr
}

// pending is a processed candidate whose record has not been written yet.
// Its checkpoint token stays in flight until the batch commits, so a crash
// before the commit regenerates the candidate on resume.
type pending struct {
	rec   store.Record
	fp    string
	token uint64
}

func (e *Engine) workerLoop(ctx context.Context, fail func(error)) {
	var batch []pending
	defer func() { e.flushBatch(ctx, batch, fail) }()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cand, token, err := e.sched.Draw()
		if err != nil {
			if errors.Is(err, pattern.ErrExhausted) {
				fail(err)
			}
			return
		}

		rec, fp, hasRecord := e.process(ctx, cand)
		if !hasRecord {
			if err := e.sched.Complete(token); err != nil {
				// Checkpoint write failure: the cursor can no longer be
				// persisted, so continuing would silently lose resumability.
				fail(err)
				return
			}
			continue
		}

		batch = append(batch, pending{rec: rec, fp: fp, token: token})
		if len(batch) >= e.cfg.BatchSize {
			e.flushBatch(ctx, batch, fail)
			batch = nil
		}
	}
}

// flushBatch writes the pending records in one transaction, marks their
// fingerprints done, and retires their checkpoint tokens. On a failed write
// everything stays unsaved, unmarked, and in flight, so a later run retries
// the whole batch.
func (e *Engine) flushBatch(ctx context.Context, batch []pending, fail func(error)) {
	if len(batch) == 0 {
		return
	}

	// The final flush happens after the run context is cancelled; give it
	// its own deadline instead of failing on the dead context.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), e.cfg.ShutdownTimeout)
		defer cancel()
	}

	var err error
	if len(batch) == 1 {
		err = e.records.Save(ctx, batch[0].rec)
	} else {
		recs := make([]store.Record, len(batch))
		for i, p := range batch {
			recs[i] = p.rec
		}
		err = e.records.SaveBatch(ctx, recs)
	}
	if err != nil {
		e.log.WithError(err).WithField("size", len(batch)).Warn("failed to persist record batch")
		return
	}

	for _, p := range batch {
		if p.fp != "" {
			if err := e.ledger.MarkDone(p.fp); err != nil {
				e.log.WithError(err).WithField("fingerprint", p.fp).Warn("failed to mark fingerprint done")
			}
		}
		if err := e.sched.Complete(p.token); err != nil {
			fail(err)
			return
		}
	}
}

// process handles one candidate through derivation and lookup. All
// failures here are isolated to the candidate. The returned record joins
// the worker's batch; hasRecord is false when there is nothing to persist.
func (e *Engine) process(ctx context.Context, cand pattern.Candidate) (_ store.Record, _ string, hasRecord bool) {
	atomic.AddInt64(&e.tested, 1)

	if _, ok := mnemonic.Validate(cand.Words); !ok {
		atomic.AddInt64(&e.invalid, 1)
		if e.cfg.RecordInvalid {
			// No fingerprint mark: invalid candidates are recorded but
			// never claim a test slot.
			return store.Record{
				Fingerprint: dedupe.Fingerprint(cand.Words),
				Mnemonic:    cand.Mnemonic(),
				Status:      store.StatusInvalidChecksum,
			}, "", true
		}
		return store.Record{}, "", false
	}

	fp := dedupe.Fingerprint(cand.Words)
	claim, err := e.ledger.TestAndMark(fp)
	if err != nil {
		e.log.WithError(err).WithField("fingerprint", fp).Warn("dedupe claim failed, skipping candidate")
		return store.Record{}, "", false
	}
	if claim == dedupe.AlreadyTested {
		atomic.AddInt64(&e.skipped, 1)
		return store.Record{}, "", false
	}

	rec := store.Record{
		Fingerprint: fp,
		Mnemonic:    cand.Mnemonic(),
		Status:      store.StatusNoBalance,
	}

	var sawDeferred, sawError bool
	for _, result := range e.deriver.DeriveAll(cand.Words) {
		if result.Err != nil {
			sawError = true
			continue
		}

		accounts, err := e.oracle.AccountsByPublicKey(ctx, result.Address)
		switch {
		case errors.Is(err, oracle.ErrDeferred):
			sawDeferred = true
			continue
		case err != nil:
			sawError = true
			e.log.WithError(err).WithFields(logrus.Fields{
				"method": result.Method, "fingerprint": fp,
			}).Warn("oracle lookup failed")
			continue
		}

		var total int64
		ids := make([]string, 0, len(accounts))
		for _, a := range accounts {
			total += a.Balance
			ids = append(ids, a.AccountID)
		}
		if total > 0 {
			rec.Status = store.StatusFunded
			rec.Method = result.Method
			rec.Accounts = ids
			rec.Balance = total
			atomic.AddInt64(&e.funded, 1)
			e.reportFinding(ctx, Finding{
				Mnemonic:  cand.Mnemonic(),
				Method:    result.Method,
				Accounts:  ids,
				Balance:   total,
				PatternID: cand.PatternID,
				Ordinal:   cand.Ordinal,
			})
			break
		}
	}

	if rec.Status != store.StatusFunded {
		if sawDeferred {
			rec.Status = store.StatusDeferred
			atomic.AddInt64(&e.deferred, 1)
		} else if sawError {
			rec.Status = store.StatusError
			atomic.AddInt64(&e.errored, 1)
		}
	}
	return rec, fp, true
}

func (e *Engine) reportFinding(ctx context.Context, f Finding) {
	e.log.WithFields(logrus.Fields{
		"method":   f.Method,
		"accounts": f.Accounts,
		"balance":  f.Balance,
		"pattern":  f.PatternID,
	}).Info("funded wallet found")
	select {
	case e.findings <- f:
	case <-ctx.Done():
	}
}

func (e *Engine) reportProgress(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.ProgressEvery)
	defer ticker.Stop()

	var last int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := e.Stats()
			rate := float64(st.Tested-last) / e.cfg.ProgressEvery.Seconds()
			last = st.Tested
			e.log.WithFields(logrus.Fields{
				"tested":   st.Tested,
				"invalid":  st.Invalid,
				"skipped":  st.Skipped,
				"funded":   st.Funded,
				"deferred": st.Deferred,
				"errors":   st.Errors,
				"per_sec":  rate,
			}).Info("progress")
		}
	}
}
