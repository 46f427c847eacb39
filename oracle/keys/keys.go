package keys

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cosmosbip39 "github.com/cosmos/go-bip39"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
	"github.com/tyler-smith/go-bip39"
)

// DefaultHDPath is the first Ethereum account.
const DefaultHDPath = "m/44'/60'/0'/0/0"

const mnemonicEntropySize = 256

// NewMnemonic returns a fresh 24 word mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropySize)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// FromMnemonic derives the key at hdPath. An empty hdPath uses DefaultHDPath.
func FromMnemonic(mnemonic, hdPath string) (*ecdsa.PrivateKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !cosmosbip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic: got %d words", len(strings.Fields(mnemonic)))
	}
	if hdPath == "" {
		hdPath = DefaultHDPath
	}

	wallet, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet: %w", err)
	}
	path, err := hdwallet.ParseDerivationPath(hdPath)
	if err != nil {
		return nil, fmt.Errorf("invalid hd path %s: %w", hdPath, err)
	}
	account, err := wallet.Derive(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to derive %s: %w", hdPath, err)
	}
	return wallet.PrivateKey(account)
}

// FromHex parses a hex private key, with or without 0x.
func FromHex(s string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// Save writes key as hex to path, readable by the owner only.
func Save(path string, key *ecdsa.PrivateKey) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("key file %s already exists", path)
	}
	return crypto.SaveECDSA(path, key)
}

// Load reads a key file written by Save.
func Load(path string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load key %s: %w", path, err)
	}
	return key, nil
}

// LoadOrCreate loads the key at path, generating a new one when the file is missing.
// The mnemonic is returned only for a new key.
func LoadOrCreate(path string) (*ecdsa.PrivateKey, string, error) {
	if _, err := os.Stat(path); err == nil {
		key, err := Load(path)
		return key, "", err
	}

	mnemonic, err := NewMnemonic()
	if err != nil {
		return nil, "", err
	}
	key, err := FromMnemonic(mnemonic, DefaultHDPath)
	if err != nil {
		return nil, "", err
	}
	if err := Save(path, key); err != nil {
		return nil, "", err
	}
	return key, mnemonic, nil
}

func Address(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}
