package derive

import (
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/sha3"
)

// methodTable enumerates every supported derivation standard. Two families:
// Ed25519 chains (native Hedera keys) and secp256k1 BIP32 trees (Hedera
// ECDSA accounts). Path and salt constants follow the wallets they imitate.
func methodTable(passphrases []string) []method {
	var table []method

	add := func(id string, fn func(in *input) ([]byte, error)) {
		table = append(table, method{id: id, fn: fn})
	}

	// Direct seed: first 32 seed bytes as the Ed25519 private scalar. The
	// oldest Hedera wallet convention.
	add("direct_seed", func(in *input) ([]byte, error) {
		return ed25519Public(in.seed[:32]), nil
	})

	// SLIP-10 tree at the Hedera coin type.
	add("slip10_ed25519", func(in *input) ([]byte, error) {
		return ed25519Public(slip10Derive(in.seed, slip10Key, hederaPath(0, 0, 0))), nil
	})
	for account := uint32(0); account < 10; account++ {
		account := account
		add(fmt.Sprintf("slip10_account_%d", account), func(in *input) ([]byte, error) {
			return ed25519Public(slip10Derive(in.seed, slip10Key, hederaPath(account, 0, 0))), nil
		})
	}
	add("slip10_legacy", func(in *input) ([]byte, error) {
		return ed25519Public(slip10Derive(in.seed, slip10Key, []uint32{44, 3030, 0})), nil
	})
	add("slip10_index_1", func(in *input) ([]byte, error) {
		return ed25519Public(slip10Derive(in.seed, slip10Key, hederaPath(0, 0, 1))), nil
	})
	add("slip10_change_1", func(in *input) ([]byte, error) {
		return ed25519Public(slip10Derive(in.seed, slip10Key, hederaPath(0, 1, 0))), nil
	})

	// HashPack accepts abbreviated paths; non-hardened segments are coerced
	// hardened by the Ed25519 chain.
	hashpackPaths := [][]uint32{
		{44, 3030, 0, 0, 0},
		{44, 3030, 0, 0},
		{44, 3030},
		{44, 3030, 0},
	}
	for i, path := range hashpackPaths {
		path := path
		add(fmt.Sprintf("hashpack_path_%d", i+1), func(in *input) ([]byte, error) {
			return ed25519Public(slip10Derive(in.seed, slip10Key, path)), nil
		})
	}

	// Ledger seeds its tree with a different master HMAC key, at three
	// path depths.
	ledgerPaths := [][]uint32{
		{44, 3030, 0, 0, 0},
		{44, 3030, 0, 0},
		{44, 3030, 0},
	}
	for i, path := range ledgerPaths {
		path := path
		add(fmt.Sprintf("ledger_%d", i+1), func(in *input) ([]byte, error) {
			return ed25519Public(slip10Derive(in.seed, ledgerKey, path)), nil
		})
	}

	// PBKDF2 over the raw phrase with salt and iteration variants. These
	// imitate tooling built on HMAC-SHA1 PBKDF2 defaults, which is also
	// what keeps pbkdf2_default from collapsing into the BIP39 seed.
	add("pbkdf2_hedera", func(in *input) ([]byte, error) {
		return ed25519Public(pbkdf2.Key([]byte(in.phrase), []byte("mnemonichedera"), 2048, 32, sha1.New)), nil
	})
	add("pbkdf2_default", func(in *input) ([]byte, error) {
		return ed25519Public(pbkdf2.Key([]byte(in.phrase), []byte("mnemonic"), 2048, 32, sha1.New)), nil
	})
	add("pbkdf2_bitcoin", func(in *input) ([]byte, error) {
		return ed25519Public(pbkdf2.Key([]byte(in.phrase), []byte("mnemonic"), 4096, 32, sha1.New)), nil
	})
	add("pbkdf2_sha256", func(in *input) ([]byte, error) {
		return ed25519Public(pbkdf2.Key([]byte(in.phrase), []byte("mnemonic"), 2048, 32, sha256.New)), nil
	})

	// BIP39 seed under each configured passphrase, truncated to a key.
	for _, pass := range passphrases {
		pass := pass
		label := pass
		if label == "" {
			label = "empty"
		}
		add("passphrase_"+label, func(in *input) ([]byte, error) {
			seed := bip39.NewSeed(in.phrase, pass)
			return ed25519Public(seed[:32]), nil
		})
	}

	// Hash-of-words shortcuts seen in early recovery tooling.
	add("word_concat", func(in *input) ([]byte, error) {
		joined := strings.Join(strings.Fields(in.phrase), "")
		sum := sha256.Sum256([]byte(joined))
		return ed25519Public(sum[:]), nil
	})
	add("entropy_direct", func(in *input) ([]byte, error) {
		sum := sha256.Sum256([]byte(in.phrase))
		return ed25519Public(sum[:]), nil
	})
	add("web3_style", func(in *input) ([]byte, error) {
		sum := sha3.Sum256(in.seed)
		return ed25519Public(sum[:]), nil
	})

	// Vendor-tagged seed hashes.
	for _, tag := range []string{"metamask", "hashpack", "blade"} {
		tag := tag
		add(tag+"_style", func(in *input) ([]byte, error) {
			sum := sha256.Sum256(append(append([]byte{}, in.seed...), []byte(tag)...))
			return ed25519Public(sum[:]), nil
		})
	}

	// secp256k1 family: Hedera ECDSA accounts. Addresses are compressed
	// public keys.
	add("bip32_master", func(in *input) ([]byte, error) {
		key, err := bip32.NewMasterKey(in.seed)
		if err != nil {
			return nil, fmt.Errorf("master key: %w", err)
		}
		priv, _ := btcec.PrivKeyFromBytes(key.Key)
		return priv.PubKey().SerializeCompressed(), nil
	})
	add("bip32_child_0", func(in *input) ([]byte, error) {
		key, err := bip32.NewMasterKey(in.seed)
		if err != nil {
			return nil, fmt.Errorf("master key: %w", err)
		}
		child, err := key.NewChildKey(0)
		if err != nil {
			return nil, fmt.Errorf("child key: %w", err)
		}
		priv, _ := btcec.PrivKeyFromBytes(child.Key)
		return priv.PubKey().SerializeCompressed(), nil
	})

	ecdsaPaths := []struct {
		id   string
		path []uint32
	}{
		{"ecdsa_hd", []uint32{44 + hardened, 3030 + hardened, hardened, 0, 0}},
		{"ecdsa_hd_change", []uint32{44 + hardened, 3030 + hardened, hardened, 1, 0}},
		{"ecdsa_legacy_3030", []uint32{44 + hardened, 3030 + hardened, hardened}},
	}
	for _, p := range ecdsaPaths {
		id, path := p.id, p.path
		add(id, func(in *input) ([]byte, error) {
			return secpDerive(in.seed, path)
		})
	}
	for account := uint32(0); account < 5; account++ {
		account := account
		add(fmt.Sprintf("ecdsa_account_%d", account), func(in *input) ([]byte, error) {
			return secpDerive(in.seed, []uint32{44 + hardened, 3030 + hardened, account + hardened, 0, 0})
		})
	}

	return table
}

// secpDerive walks a secp256k1 BIP32 tree and returns the compressed
// public key at the end of path.
func secpDerive(seed []byte, path []uint32) ([]byte, error) {
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("hd master: %w", err)
	}
	for _, index := range path {
		key, err = key.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("deriving index %d: %w", index, err)
		}
	}
	pub, err := key.ECPubKey()
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	return pub.SerializeCompressed(), nil
}
