package derive

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
)

// hardened is the BIP32 hardened-index offset.
const hardened uint32 = 0x80000000

// Master HMAC keys for the Ed25519 chains. Ledger devices seed their tree
// with a different domain string than SLIP-10.
const (
	slip10Key = "ed25519 seed"
	ledgerKey = "Ledger seed"
)

// slip10Derive walks an Ed25519 key chain from seed along path. Ed25519
// only supports hardened derivation, so indices below the hardened offset
// are coerced, matching how Hedera wallets treat abbreviated paths.
func slip10Derive(seed []byte, masterKey string, path []uint32) []byte {
	mac := hmac.New(sha512.New, []byte(masterKey))
	mac.Write(seed)
	sum := mac.Sum(nil)
	key, chain := sum[:32], sum[32:]

	var buf [4]byte
	for _, index := range path {
		if index < hardened {
			index += hardened
		}
		binary.BigEndian.PutUint32(buf[:], index)

		mac = hmac.New(sha512.New, chain)
		mac.Write([]byte{0x00})
		mac.Write(key)
		mac.Write(buf[:])
		sum = mac.Sum(nil)
		key, chain = sum[:32], sum[32:]
	}
	return key
}

// ed25519Public expands a 32-byte private scalar into its public key.
func ed25519Public(key []byte) []byte {
	priv := ed25519.NewKeyFromSeed(key)
	return priv.Public().(ed25519.PublicKey)
}

// hederaPath builds m/44'/3030'/account'/change/index.
func hederaPath(account, change, index uint32) []uint32 {
	return []uint32{44 + hardened, 3030 + hardened, account + hardened, change + hardened, index + hardened}
}
