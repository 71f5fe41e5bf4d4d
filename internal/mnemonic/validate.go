// Package mnemonic checks candidate phrases against the BIP39 checksum.
package mnemonic

import (
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// Validate reports whether words form a checksum-valid BIP39 phrase and, if
// so, how many entropy bits it encodes. It is a pure function of its input:
// the last checksum bits of the concatenated word indices are verified
// against the SHA-256 of the preceding entropy bits.
func Validate(words []string) (entropyBits int, ok bool) {
	phrase := strings.Join(words, " ")
	if !bip39.IsMnemonicValid(phrase) {
		return 0, false
	}
	entropy, err := bip39.EntropyFromMnemonic(phrase)
	if err != nil {
		return 0, false
	}
	return len(entropy) * 8, true
}

// Normalize lowercases and collapses whitespace, the same cleanup applied
// to operator-supplied test phrases.
func Normalize(phrase string) []string {
	return strings.Fields(strings.ToLower(strings.TrimSpace(phrase)))
}
