package iroha

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ed25519PublicKeyPrefix is the multihash prefix of an ed25519 public key,
// which selects standard ed25519 verification on the node.
const ed25519PublicKeyPrefix = "ed0120"

var ErrInvalidPrivateKey = errors.New("invalid private key")

// Keypair signs queries on behalf of the operator account.
type Keypair struct {
	private ed25519.PrivateKey
}

// NewKeypairFromHex creates a keypair from a hex encoded 32 byte seed.
//
// Keys follow RFC 8032 (SHA-512 key expansion) and are presented to the node
// with the ed0120 multihash prefix. Seeds generated for the legacy
// iroha-ed25519 scheme, which expands keys with SHA3-512, derive a different
// public key, and the node rejects queries signed with them as an invalid
// account (error code 3).
func NewKeypairFromHex(s string) (*Keypair, error) {
	seed, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Join(ErrInvalidPrivateKey, err)
	}

	return NewKeypair(seed)
}

func NewKeypair(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPrivateKey, ed25519.SeedSize, len(seed))
	}

	return &Keypair{private: ed25519.NewKeyFromSeed(seed)}, nil
}

func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.private.Public().(ed25519.PublicKey) //nolint:forcetypeassert
}

// PublicKeyHex returns the public key in the node's multihash hex form.
func (k *Keypair) PublicKeyHex() string {
	return ed25519PublicKeyPrefix + hex.EncodeToString(k.PublicKey())
}

// Sign signs the content hash of payload.
func (k *Keypair) Sign(payload []byte) []byte {
	hash := HashOf(payload)

	return ed25519.Sign(k.private, hash[:])
}

// Verify checks a signature produced by Sign.
func Verify(publicKeyHex string, payload, signature []byte) bool {
	pub, err := hex.DecodeString(strings.TrimPrefix(publicKeyHex, ed25519PublicKeyPrefix))
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}

	hash := HashOf(payload)

	return ed25519.Verify(pub, hash[:], signature)
}
