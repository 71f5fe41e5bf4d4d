package derive

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"
)

const testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// Known BIP39 seed for the test phrase with an empty passphrase.
const testSeedHex = "5eb00bbddcf069084889a8ab9155568165f5c453ccb85e70811aaed6f6da5fc1" +
	"9a5ac40b389cd370d086206dec8aa6c43daea6690f20ad3d8d48b2d2ce9e38e4"

func testWords() []string { return strings.Fields(testPhrase) }

func resultByMethod(t *testing.T, results []Result, id string) Result {
	t.Helper()
	for _, r := range results {
		if r.Method == id {
			return r
		}
	}
	t.Fatalf("method %s not in results", id)
	return Result{}
}

func TestMethodTableSize(t *testing.T) {
	eng := NewEngine([]string{"", "hedera", "HEDERA", "Hedera", "hbar", "HBAR"}, nil)
	assert.GreaterOrEqual(t, len(eng.Methods()), 47)
}

func TestMethodIDsAreUnique(t *testing.T) {
	eng := NewEngine([]string{"", "hedera"}, nil)
	seen := make(map[string]struct{})
	for _, id := range eng.Methods() {
		_, dup := seen[id]
		require.False(t, dup, "duplicate method id %s", id)
		seen[id] = struct{}{}
	}
}

func TestDeriveAllSucceedsOnValidPhrase(t *testing.T) {
	eng := NewEngine([]string{"", "hedera"}, nil)
	results := eng.DeriveAll(testWords())
	require.Len(t, results, len(eng.Methods()))
	for _, r := range results {
		require.NoError(t, r.Err, "method %s", r.Method)
		assert.NotEmpty(t, r.PublicKey, "method %s", r.Method)
		assert.Equal(t, hex.EncodeToString(r.PublicKey), r.Address)
	}
}

func TestDeriveAllIsDeterministic(t *testing.T) {
	eng := NewEngine([]string{""}, nil)
	first := eng.DeriveAll(testWords())
	second := eng.DeriveAll(testWords())
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Method, second[i].Method)
		assert.Equal(t, first[i].Address, second[i].Address)
	}
}

func TestDirectSeedMatchesKnownVector(t *testing.T) {
	seed, err := hex.DecodeString(testSeedHex)
	require.NoError(t, err)
	assert.Equal(t, seed, bip39.NewSeed(testPhrase, ""))

	want := ed25519.NewKeyFromSeed(seed[:32]).Public().(ed25519.PublicKey)

	eng := NewEngine(nil, nil)
	r := resultByMethod(t, eng.DeriveAll(testWords()), "direct_seed")
	require.NoError(t, r.Err)
	assert.Equal(t, []byte(want), r.PublicKey)
}

func TestEmptyPassphraseEqualsDirectSeed(t *testing.T) {
	eng := NewEngine([]string{""}, nil)
	results := eng.DeriveAll(testWords())

	direct := resultByMethod(t, results, "direct_seed")
	empty := resultByMethod(t, results, "passphrase_empty")
	assert.Equal(t, direct.Address, empty.Address)
}

func TestHashpackDefaultPathEqualsSlip10(t *testing.T) {
	// hashpack_path_1 walks the same coerced-hardened path as the SLIP-10
	// default, so the keys must agree.
	eng := NewEngine(nil, nil)
	results := eng.DeriveAll(testWords())

	slip := resultByMethod(t, results, "slip10_ed25519")
	hp := resultByMethod(t, results, "hashpack_path_1")
	assert.Equal(t, slip.Address, hp.Address)
}

func TestLedgerDiffersFromSlip10(t *testing.T) {
	eng := NewEngine(nil, nil)
	results := eng.DeriveAll(testWords())

	slip := resultByMethod(t, results, "slip10_ed25519")
	ledger := resultByMethod(t, results, "ledger_1")
	assert.NotEqual(t, slip.Address, ledger.Address)
}

func TestPbkdf2FamilyDerivesDistinctKeys(t *testing.T) {
	// The SHA-1 based family must not collapse into the BIP39 seed: with
	// HMAC-SHA512 the "mnemonic"/2048 parameters reproduce direct_seed
	// exactly and the variant tests nothing new.
	eng := NewEngine(nil, nil)
	results := eng.DeriveAll(testWords())

	direct := resultByMethod(t, results, "direct_seed")
	def := resultByMethod(t, results, "pbkdf2_default")
	hedera := resultByMethod(t, results, "pbkdf2_hedera")
	sha256v := resultByMethod(t, results, "pbkdf2_sha256")

	assert.NotEqual(t, direct.Address, def.Address)
	assert.NotEqual(t, def.Address, hedera.Address)
	assert.NotEqual(t, def.Address, sha256v.Address)
}

func TestEnabledFilter(t *testing.T) {
	eng := NewEngine(nil, []string{"direct_seed", "slip10_ed25519"})
	assert.Equal(t, []string{"direct_seed", "slip10_ed25519"}, eng.Methods())

	results := eng.DeriveAll(testWords())
	require.Len(t, results, 2)
}

func TestEcdsaKeysAreCompressed(t *testing.T) {
	eng := NewEngine(nil, []string{"ecdsa_hd", "bip32_master"})
	for _, r := range eng.DeriveAll(testWords()) {
		require.NoError(t, r.Err)
		assert.Len(t, r.PublicKey, 33, "method %s", r.Method)
	}
}
