package cryptox

import (
	"crypto/rand"

	"github.com/quietpage/quietpage/internal/common"
	"golang.org/x/crypto/nacl/box"
)

// RecipientKeySize is the X25519 public-key length used by share envelopes.
const RecipientKeySize = 32

// RewrapForRecipient seals the raw master key to a recipient's X25519 public
// key using an anonymous NaCl box. The result is a self-contained envelope
// (ephemeral-pub‖ciphertext) independent of the owner's password: the owner
// can rotate their password without invalidating existing shares.
func RewrapForRecipient(masterKey []byte, recipientPub []byte) ([]byte, error) {
	if len(recipientPub) != RecipientKeySize {
		return nil, common.ErrKeyNotFound
	}
	var pub [32]byte
	copy(pub[:], recipientPub)
	return box.SealAnonymous(nil, masterKey, &pub, rand.Reader)
}

// OpenRewrapped decrypts a RewrapForRecipient envelope with the recipient's
// key pair. Used by the professional-side tooling and by tests.
func OpenRewrapped(envelope, recipientPub, recipientPriv []byte) ([]byte, error) {
	if len(recipientPub) != RecipientKeySize || len(recipientPriv) != RecipientKeySize {
		return nil, common.ErrKeyNotFound
	}
	var pub, priv [32]byte
	copy(pub[:], recipientPub)
	copy(priv[:], recipientPriv)

	masterKey, ok := box.OpenAnonymous(nil, envelope, &pub, &priv)
	if !ok {
		return nil, common.ErrInvalidPassword
	}
	return masterKey, nil
}

// GenerateRecipientKeyPair creates an X25519 key pair for a share recipient.
func GenerateRecipientKeyPair() (pub, priv []byte, err error) {
	p, s, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return p[:], s[:], nil
}

// RewrapOverhead is the number of bytes RewrapForRecipient adds on top of
// the plaintext length (ephemeral public key plus AEAD tag).
const RewrapOverhead = box.AnonymousOverhead
