// Package pattern produces candidate word sequences from a fixed vocabulary.
//
// Strategies are tried in priority order; a strategy must be drained (or hit
// its sample cap) before the next one activates. Every strategy is a pure
// function from an ordinal to a word-index sequence, so the generator's
// entire progress is the map of per-strategy ordinals. Restoring that map
// reproduces the remaining sequence bit-for-bit.
package pattern

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"hbar_recovery/internal/vocab"
)

// ErrExhausted is returned when no strategy can produce another candidate.
// With the exhaustive fallback enabled this indicates a configuration
// problem, not a normal end of input.
var ErrExhausted = errors.New("pattern: all strategies exhausted")

// Candidate is one word sequence tagged with the strategy and position that
// produced it. Candidates are transient values.
type Candidate struct {
	Words     []string
	PatternID string
	Ordinal   uint64
}

// Mnemonic returns the space-joined phrase.
func (c Candidate) Mnemonic() string {
	return strings.Join(c.Words, " ")
}

// State is the serializable cursor set for every strategy. It is owned by
// the Generator and persisted through the checkpoint store.
type State struct {
	Ordinals map[string]uint64 `json:"ordinals"`
	Retired  []string          `json:"retired,omitempty"`
}

// Options tune generation behavior.
type Options struct {
	// SampleCap bounds the seeded-sampling strategy. Zero keeps the
	// default of 50000 candidates.
	SampleCap uint64

	// ExhaustiveMode selects "combinations" (with repetition, default) or
	// "permutations" for the fallback strategy.
	ExhaustiveMode string
}

// strategy is a deterministic mapping from ordinal to word indices. At
// reports false once the ordinal is past the strategy's last candidate.
type strategy interface {
	ID() string
	At(ord uint64) ([]int, bool)
}

// Generator walks the strategies in priority order. All methods are safe
// for concurrent use; advancing the cursor is a single locked step.
type Generator struct {
	mu         sync.Mutex
	vocab      *vocab.List
	length     int
	strategies []strategy
	ordinals   map[string]uint64
	retired    map[string]bool
	caps       map[string]uint64
	active     int
	log        *logrus.Logger
}

// New builds a Generator over v producing sequences of length words.
func New(v *vocab.List, length int, opts Options, log *logrus.Logger) *Generator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	sampleCap := opts.SampleCap
	if sampleCap == 0 {
		sampleCap = 50000
	}
	mode := opts.ExhaustiveMode
	if mode == "" {
		mode = ModeCombinations
	}

	l := v.Len()
	strategies := []strategy{
		exactStrategy{n: l, w: length},
		windowStrategy{n: l, w: length},
		splitStrategy{n: l, w: length},
		interleaveStrategy{n: l, w: length},
		chunkStrategy{n: l, w: length},

		// Geometric layouts.
		newTableStrategy("zigzag", zigzagTable(l, length)),
		newTableStrategy("spiral", spiralTable(l, length)),
		newTableStrategy("mirror", mirrorTable(l, length)),
		newTableStrategy("half_reverse", halfReverseTable(l, length)),
		newTableStrategy("rotation", rotationTable(l, length)),
		newTableStrategy("columns", columnTable(l, length)),
		newTableStrategy("chunk_reverse", chunkReverseTable(l, length)),

		// Recovery-card transcription layouts.
		newTableStrategy("ledger_card", ledgerCardTable(l, length)),
		newTableStrategy("two_column", twoColumnTable(l, length)),
		newTableStrategy("card_sequence", cardSequenceTable(l, length)),
		newTableStrategy("card_display", cardDisplayTable(l, length)),
		newTableStrategy("card_swap", cardSwapTable(l, length)),

		// Mathematical index sequences.
		newFormulaStrategy("fibonacci", l, length, fibonacciIndices),
		newFormulaStrategy("prime", l, length, primeIndices),
		newFormulaStrategy("lucas", l, length, lucasIndices),
		newFormulaStrategy("triangular", l, length, triangularIndices),
		newFormulaStrategy("golden", l, length, goldenIndices),
		newTableStrategy("modular", modularTable(l, length)),
		newTableStrategy("palindrome", palindromeTable(l, length)),

		// Transcriber-behavior orderings.
		newTableStrategy("keyboard", keyboardTable(l, length)),
		newTableStrategy("frequency", frequencyTable(v.Words(), length)),
		newTableStrategy("length", lengthTable(v.Words(), length)),

		sampleStrategy{n: l, w: length},
		newExhaustiveStrategy(l, length, mode),
	}

	return &Generator{
		vocab:      v,
		length:     length,
		strategies: strategies,
		ordinals:   make(map[string]uint64, len(strategies)),
		retired:    make(map[string]bool),
		caps:       map[string]uint64{"sample": sampleCap},
		log:        log,
	}
}

// Next returns the next candidate in global generator order. It returns
// ErrExhausted only when every strategy, including the exhaustive fallback,
// is unavailable.
func (g *Generator) Next() (Candidate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nextLocked()
}

func (g *Generator) nextLocked() (Candidate, error) {
	for g.active < len(g.strategies) {
		s := g.strategies[g.active]
		id := s.ID()
		if g.retired[id] {
			g.active++
			continue
		}
		ord := g.ordinals[id]
		if cap, capped := g.caps[id]; capped && ord >= cap {
			g.active++
			continue
		}

		indices, ok := g.safeAt(s, ord)
		if !ok {
			if id == "exhaustive" && !g.retired[id] {
				// The fallback is constructed to never drain.
				g.log.WithField("pattern", id).Error("exhaustive fallback reported exhaustion; generator configuration is broken")
			}
			g.active++
			continue
		}

		g.ordinals[id] = ord + 1
		words := make([]string, len(indices))
		for i, idx := range indices {
			words[i] = g.vocab.Word(idx)
		}
		return Candidate{Words: words, PatternID: id, Ordinal: ord}, nil
	}
	return Candidate{}, ErrExhausted
}

// safeAt shields the generator from a faulting strategy: a panic retires
// that pattern id for the rest of the run and the others continue.
func (g *Generator) safeAt(s strategy, ord uint64) (indices []int, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			g.retired[s.ID()] = true
			entry := g.log.WithFields(logrus.Fields{"pattern": s.ID(), "ordinal": ord, "fault": fmt.Sprint(r)})
			if s.ID() == "exhaustive" {
				entry.Error("exhaustive fallback faulted; generator configuration is broken")
			} else {
				entry.Warn("pattern strategy retired after internal fault")
			}
			indices, ok = nil, false
		}
	}()
	return s.At(ord)
}

// Cursors snapshots the per-strategy ordinals. The snapshot is safe to
// persist and hand back to Restore on a later run.
func (g *Generator) Cursors() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cursorsLocked()
}

func (g *Generator) cursorsLocked() State {
	s := State{Ordinals: make(map[string]uint64, len(g.ordinals))}
	for id, ord := range g.ordinals {
		s.Ordinals[id] = ord
	}
	for id := range g.retired {
		s.Retired = append(s.Retired, id)
	}
	return s
}

// DrawWithState atomically snapshots the cursor state and then advances.
// The returned state describes the generator as it was before cand was
// produced, which is what the checkpoint layer persists so that an
// interrupted candidate is regenerated on resume.
func (g *Generator) DrawWithState() (cand Candidate, before State, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	before = g.cursorsLocked()
	cand, err = g.nextLocked()
	return cand, before, err
}

// Restore rewinds the generator to a previously snapshotted state.
func (g *Generator) Restore(s State) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ordinals = make(map[string]uint64, len(s.Ordinals))
	for id, ord := range s.Ordinals {
		if !g.knownStrategy(id) {
			return fmt.Errorf("pattern: checkpoint references unknown strategy %q", id)
		}
		g.ordinals[id] = ord
	}
	g.retired = make(map[string]bool)
	for _, id := range s.Retired {
		g.retired[id] = true
	}
	g.active = 0
	return nil
}

func (g *Generator) knownStrategy(id string) bool {
	for _, s := range g.strategies {
		if s.ID() == id {
			return true
		}
	}
	return false
}
