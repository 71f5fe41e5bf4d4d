// Package dedupe grants each fingerprint a single right to be tested.
//
// Three layers: a bloom filter answers definite-miss cheaply, a sync.Map
// compare-and-set is the serialization point between workers, and the
// durable claim store remembers completed work across restarts. The
// durable mark is written only after the test record is persisted, so a
// crash mid-test leaves the candidate eligible for a retry.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Claim is the outcome of TestAndMark.
type Claim int

const (
	// AlreadyTested means another worker or a previous run owns this
	// fingerprint.
	AlreadyTested Claim = iota
	// ProceedToTest grants the caller the exclusive right to test.
	ProceedToTest
)

// ClaimStore is the durable completion record, keyed by fingerprint.
type ClaimStore interface {
	// MarkDone records a fingerprint as fully tested. Reports whether this
	// call was the first to record it.
	MarkDone(fp string) (bool, error)
	// IsDone reports whether the fingerprint was tested in any run.
	IsDone(fp string) (bool, error)
	// EachDone visits every recorded fingerprint.
	EachDone(fn func(fp string) error) error
}

// Fingerprint digests a candidate's words. Identical word sequences yield
// identical fingerprints regardless of which pattern produced them.
func Fingerprint(words []string) string {
	sum := sha256.Sum256([]byte(strings.Join(words, " ")))
	return hex.EncodeToString(sum[:])
}

// Ledger answers test_and_mark queries for a run.
type Ledger struct {
	mu     sync.Mutex // guards seen
	seen   *bloom.BloomFilter
	claims sync.Map
	store  ClaimStore
}

// NewLedger builds a Ledger over store, preloading the bloom filter with
// fingerprints completed by earlier runs. capacity sizes the filter; it is
// a hint, not a bound.
func NewLedger(store ClaimStore, capacity uint) (*Ledger, error) {
	if capacity < 1024 {
		capacity = 1024
	}
	l := &Ledger{
		seen:  bloom.NewWithEstimates(capacity, 0.001),
		store: store,
	}
	err := store.EachDone(func(fp string) error {
		l.seen.AddString(fp)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("preloading dedupe filter: %w", err)
	}
	return l, nil
}

// TestAndMark claims fp for the caller. Exactly one caller per process
// lifetime receives ProceedToTest for a given fingerprint, and none does if
// a previous run already completed it.
func (l *Ledger) TestAndMark(fp string) (Claim, error) {
	l.mu.Lock()
	maybeDone := l.seen.TestString(fp)
	l.mu.Unlock()

	if maybeDone {
		// Bloom positives are only probably done; confirm durably.
		done, err := l.store.IsDone(fp)
		if err != nil {
			return AlreadyTested, fmt.Errorf("checking claim %s: %w", fp, err)
		}
		if done {
			return AlreadyTested, nil
		}
	}

	if _, loaded := l.claims.LoadOrStore(fp, struct{}{}); loaded {
		return AlreadyTested, nil
	}
	return ProceedToTest, nil
}

// MarkDone records fp as fully tested. Call only after the test record has
// been persisted.
func (l *Ledger) MarkDone(fp string) error {
	if _, err := l.store.MarkDone(fp); err != nil {
		return fmt.Errorf("recording claim %s: %w", fp, err)
	}
	l.mu.Lock()
	l.seen.AddString(fp)
	l.mu.Unlock()
	return nil
}
