package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer derives a public identity from a credential and signs login
// challenges. The engine depends only on this interface.
type Signer interface {
	// Address returns the checksummed public address.
	Address() string
	// PublicKeyHex returns the uncompressed public key as 0x-prefixed hex.
	PublicKeyHex() string
	// SignMessage signs an arbitrary challenge string and returns the
	// signature as 0x-prefixed hex.
	SignMessage(msg string) (string, error)
}

type evmSigner struct {
	key *ecdsa.PrivateKey
}

// New builds an EVM signer from a hex private key (0x prefix optional).
func New(privateKeyHex string) (Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &evmSigner{key: key}, nil
}

func (s *evmSigner) Address() string {
	return crypto.PubkeyToAddress(s.key.PublicKey).Hex()
}

func (s *evmSigner) PublicKeyHex() string {
	return hexutil.Encode(crypto.FromECDSAPub(&s.key.PublicKey))
}

// SignMessage produces an EIP-191 personal-message signature with the
// recovery id shifted to 27/28, the form wallet verifiers expect.
func (s *evmSigner) SignMessage(msg string) (string, error) {
	hash := accounts.TextHash([]byte(msg))
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}
