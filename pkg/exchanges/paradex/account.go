// Package paradex implements the Paradex exchange gateway. Trading happens
// through a sub-account whose key is derived from the owner's L1 Ethereum key;
// authenticated calls carry a short-lived JWT minted via a signed /auth
// request.
package paradex

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// keyDerivationMessage is signed once with the L1 key; the keccak hash of the
// resulting signature seeds the sub-account key. The derivation is
// deterministic, so the same L1 key always maps to the same sub-account.
const keyDerivationMessage = "paradex sub-account derivation"

// Account is the derived trading sub-account.
type Account struct {
	L1Address string
	Address   string
	priv      *ecdsa.PrivateKey
}

// DeriveAccount derives the trading sub-account from an L1 private key hex
// string (with or without 0x prefix).
func DeriveAccount(l1PrivateKeyHex string) (*Account, error) {
	l1Key, err := crypto.HexToECDSA(strings.TrimPrefix(l1PrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse L1 private key: %w", err)
	}

	seedSig, err := crypto.Sign(crypto.Keccak256([]byte(keyDerivationMessage)), l1Key)
	if err != nil {
		return nil, fmt.Errorf("sign derivation message: %w", err)
	}
	subKey, err := crypto.ToECDSA(crypto.Keccak256(seedSig))
	if err != nil {
		return nil, fmt.Errorf("derive sub-account key: %w", err)
	}

	return &Account{
		L1Address: crypto.PubkeyToAddress(l1Key.PublicKey).Hex(),
		Address:   crypto.PubkeyToAddress(subKey.PublicKey).Hex(),
		priv:      subKey,
	}, nil
}

// PublicKeyHex returns the uncompressed sub-account public key, 0x-prefixed.
func (a *Account) PublicKeyHex() string {
	return "0x" + hex.EncodeToString(crypto.FromECDSAPub(&a.priv.PublicKey))
}
