// Package identity derives deterministic wallets for goal owners.
//
// A wallet is derived from a BIP-39 recovery phrase through the standard
// m/44'/60'/0'/0/0 hierarchical path. Only the public address leaves this
// package for persistence; the phrase is surfaced exactly once at creation.
package identity

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/sha3"

	apperrors "github.com/shxuryaaz/agilow-goal-forge/internal/platform/errors"
)

const entropyBits = 128

// derivationPath is the fixed m/44'/60'/0'/0/0 path.
var derivationPath = []uint32{
	hdkeychain.HardenedKeyStart + 44,
	hdkeychain.HardenedKeyStart + 60,
	hdkeychain.HardenedKeyStart + 0,
	0,
	0,
}

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Wallet couples an owner with a derived public address. RecoveryPhrase is
// populated only by NewWallet and must not be persisted.
type Wallet struct {
	Owner          string
	Address        string
	RecoveryPhrase string
}

// NewWallet generates a fresh recovery phrase and derives the owner wallet.
func NewWallet(owner string) (Wallet, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return Wallet{}, fmt.Errorf("wallet owner is required")
	}

	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return Wallet{}, fmt.Errorf("generate entropy: %w", err)
	}
	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return Wallet{}, fmt.Errorf("generate mnemonic: %w", err)
	}

	address, err := DeriveAddress(phrase)
	if err != nil {
		return Wallet{}, err
	}
	return Wallet{Owner: owner, Address: address, RecoveryPhrase: phrase}, nil
}

// FromPhrase re-derives the wallet for an existing recovery phrase. The same
// phrase always yields the same address.
func FromPhrase(owner, phrase string) (Wallet, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return Wallet{}, fmt.Errorf("wallet owner is required")
	}
	address, err := DeriveAddress(phrase)
	if err != nil {
		return Wallet{}, err
	}
	return Wallet{Owner: owner, Address: address}, nil
}

// DeriveAddress derives the checksummed public address for a recovery phrase.
func DeriveAddress(phrase string) (string, error) {
	phrase = strings.TrimSpace(phrase)
	if !bip39.IsMnemonicValid(phrase) {
		return "", fmt.Errorf("recovery phrase is not a valid mnemonic")
	}

	seed := bip39.NewSeed(phrase, "")
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return "", fmt.Errorf("derive master key: %w", err)
	}
	for _, index := range derivationPath {
		key, err = key.Derive(index)
		if err != nil {
			return "", fmt.Errorf("derive path index %d: %w", index, err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return "", fmt.Errorf("derive private key: %w", err)
	}

	// Ethereum-style address: keccak256 of the uncompressed public key
	// without the 0x04 prefix, keeping the last 20 bytes.
	pub := priv.PubKey().SerializeUncompressed()
	hash := sha3.NewLegacyKeccak256()
	hash.Write(pub[1:])
	return checksumAddress(hash.Sum(nil)[12:]), nil
}

// ValidAddress reports whether the value looks like a derived address.
func ValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}

// ValidateAddress returns a domain error for malformed addresses.
func ValidateAddress(address string) error {
	if !ValidAddress(address) {
		return apperrors.WithMetadata(
			apperrors.CodeWalletInvalidAddress,
			fmt.Sprintf("malformed wallet address %q", address),
			map[string]string{"address": address},
		)
	}
	return nil
}

// checksumAddress applies the EIP-55 mixed-case checksum to 20 address bytes.
func checksumAddress(addr []byte) string {
	lower := hex.EncodeToString(addr)
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(lower))
	digest := hash.Sum(nil)

	out := make([]byte, len(lower))
	for i, c := range []byte(lower) {
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if c >= 'a' && c <= 'f' && nibble >= 8 {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return "0x" + string(out)
}
