// Package wallet generates and holds the custodial keypair for the swap
// account. Key material never leaves the process except through the optional
// encrypted keystore file; API responses carry only the address.
package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Wallet is a generated secp256k1 keypair with its derived address.
type Wallet struct {
	Address    string
	privateKey *ecdsa.PrivateKey
}

// Generate creates a new random keypair.
func Generate() (*Wallet, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("wallet: generate key: %w", err)
	}
	return &Wallet{
		Address:    ethcrypto.PubkeyToAddress(key.PublicKey).Hex(),
		privateKey: key,
	}, nil
}

// FromPrivateKeyHex reconstructs a wallet from a hex-encoded private key
// (with or without 0x prefix).
func FromPrivateKeyHex(keyHex string) (*Wallet, error) {
	key, err := ethcrypto.HexToECDSA(strip0x(keyHex))
	if err != nil {
		return nil, fmt.Errorf("wallet: parse private key: %w", err)
	}
	return &Wallet{
		Address:    ethcrypto.PubkeyToAddress(key.PublicKey).Hex(),
		privateKey: key,
	}, nil
}

// PrivateKeyHex returns the hex-encoded private key without 0x prefix.
func (w *Wallet) PrivateKeyHex() string {
	return hex.EncodeToString(ethcrypto.FromECDSA(w.privateKey))
}

// ValidAddress reports whether s is a well-formed hex address.
func ValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

func strip0x(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}

// Custodian owns the currently active wallet. When a keystore path is
// configured, new keys are persisted encrypted at rest and the last key is
// restored on startup.
type Custodian struct {
	keyPath  string
	password string
	logger   *slog.Logger

	mu      sync.Mutex
	current *Wallet
}

// NewCustodian creates a Custodian. keyPath and password may be empty, in
// which case keys are held in memory only. If a keystore file already exists
// at keyPath it is loaded as the active wallet.
func NewCustodian(keyPath, password string, logger *slog.Logger) (*Custodian, error) {
	c := &Custodian{
		keyPath:  keyPath,
		password: password,
		logger:   logger.With(slog.String("component", "custodian")),
	}

	if keyPath != "" {
		data, err := os.ReadFile(keyPath)
		if err == nil {
			keyHex, err := DecryptKey(data, password)
			if err != nil {
				return nil, fmt.Errorf("wallet: decrypt keystore %s: %w", keyPath, err)
			}
			w, err := FromPrivateKeyHex(keyHex)
			if err != nil {
				return nil, err
			}
			c.current = w
			c.logger.Info("restored wallet from keystore",
				slog.String("address", w.Address),
			)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("wallet: read keystore %s: %w", keyPath, err)
		}
	}

	return c, nil
}

// CreateWallet generates a fresh keypair, makes it the active wallet, and
// persists it to the keystore when one is configured.
func (c *Custodian) CreateWallet() (*Wallet, error) {
	w, err := Generate()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.keyPath != "" {
		blob, err := EncryptKey(w.PrivateKeyHex(), c.password)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(c.keyPath, blob, 0o600); err != nil {
			return nil, fmt.Errorf("wallet: write keystore %s: %w", c.keyPath, err)
		}
	}

	c.current = w
	c.logger.Info("wallet created", slog.String("address", w.Address))
	return w, nil
}

// Active returns the current wallet, or false when none has been created.
func (c *Custodian) Active() (*Wallet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, false
	}
	return c.current, true
}
