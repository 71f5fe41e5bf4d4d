// Package derive maps a validated mnemonic to public keys under every
// supported derivation method. Methods are independent and deterministic:
// a method that fails contributes an error result without disturbing the
// others, and identical inputs always produce identical outputs.
package derive

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// Result is one derivation outcome. Address is the lowercase hex encoding
// of the public key, which is the lookup key the mirror node accepts;
// account ids come back from the oracle.
type Result struct {
	Method    string
	PublicKey []byte
	Address   string
	Err       error
}

// method is a pure derivation function over the prepared inputs.
type method struct {
	id string
	fn func(in *input) ([]byte, error)
}

// input carries the phrase and its lazily shared BIP39 seed so the
// expensive PBKDF2 step runs once per candidate.
type input struct {
	phrase string
	seed   []byte
}

// Engine holds the configured method table.
type Engine struct {
	methods []method
}

// NewEngine builds the method table. passphrases feeds the passphrase-seed
// family (the empty passphrase is always covered by direct_seed). enabled
// filters the table by method id; nil or empty keeps everything.
func NewEngine(passphrases []string, enabled []string) *Engine {
	table := methodTable(passphrases)
	if len(enabled) > 0 {
		keep := make(map[string]struct{}, len(enabled))
		for _, id := range enabled {
			keep[id] = struct{}{}
		}
		filtered := table[:0]
		for _, m := range table {
			if _, ok := keep[m.id]; ok {
				filtered = append(filtered, m)
			}
		}
		table = filtered
	}
	return &Engine{methods: table}
}

// Methods returns the configured method ids in derivation order.
func (e *Engine) Methods() []string {
	ids := make([]string, len(e.methods))
	for i, m := range e.methods {
		ids[i] = m.id
	}
	return ids
}

// DeriveAll runs every configured method over the phrase. The result slice
// is ordered by the method table; failed methods carry Err and an empty
// key.
func (e *Engine) DeriveAll(words []string) []Result {
	phrase := strings.Join(words, " ")
	in := &input{phrase: phrase, seed: bip39.NewSeed(phrase, "")}

	results := make([]Result, 0, len(e.methods))
	for _, m := range e.methods {
		pub, err := runMethod(m, in)
		r := Result{Method: m.id, Err: err}
		if err == nil {
			r.PublicKey = pub
			r.Address = hex.EncodeToString(pub)
		}
		results = append(results, r)
	}
	return results
}

// runMethod isolates a single method: a panic inside one derivation must
// not abort the rest of the set.
func runMethod(m method, in *input) (pub []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			pub, err = nil, fmt.Errorf("method %s: %v", m.id, r)
		}
	}()
	return m.fn(in)
}
