// Package cryptox implements the byte-level cryptographic primitives used by
// the journal: password-based key derivation, AES-GCM sealing of journal
// payloads, and the nonce‖ciphertext envelope layout used wherever an
// encrypted value must travel as a single byte buffer (wrapped master key,
// share envelopes).
//
// The package is stateless; key ownership and lifecycle live in
// internal/client/keyring.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/quietpage/quietpage/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// MasterKeySize is the size of the per-user random master key.
	MasterKeySize = 32

	// SaltSize is the size of KDF salts generated at setup/registration.
	SaltSize = 16

	// NonceSize is the AES-GCM nonce length. Fixed so that envelope buffers
	// can be split without a header.
	NonceSize = 12
)

// Default argon2id parameters for wrapping-key derivation.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
)

// KDF algorithm identifiers persisted in keyring records.
const (
	KDFArgon2id     = "argon2id"
	KDFPBKDF2SHA256 = "pbkdf2-sha256"
)

// KDFParams describes how a wrapping key is derived from a password. The
// parameters are stored next to the wrapped master key so unlock can always
// reproduce the derivation, including for records written by older builds
// that used PBKDF2.
type KDFParams struct {
	Algorithm  string `json:"algorithm"`
	Iterations int    `json:"iterations"`
	Hash       string `json:"hash,omitempty"`
	Length     int    `json:"length"`
}

// DefaultKDFParams returns the parameters used for newly created keyrings.
func DefaultKDFParams() KDFParams {
	return KDFParams{Algorithm: KDFArgon2id, Iterations: argonTime, Length: MasterKeySize}
}

// DeriveWrappingKey derives the key that encrypts the master key at rest.
// It never derives content keys: the wrapping key touches exactly one value,
// the wrapped master key.
func DeriveWrappingKey(password, salt []byte, p KDFParams) ([]byte, error) {
	if p.Length == 0 {
		p.Length = MasterKeySize
	}
	switch p.Algorithm {
	case KDFArgon2id, "":
		t := uint32(p.Iterations)
		if t == 0 {
			t = argonTime
		}
		return argon2.IDKey(password, salt, t, argonMemory, argonThreads, uint32(p.Length)), nil
	case KDFPBKDF2SHA256:
		return pbkdf2.Key(password, salt, p.Iterations, p.Length, sha256.New), nil
	default:
		return nil, fmt.Errorf("unsupported kdf algorithm: %s", p.Algorithm)
	}
}

// DeriveLoginKey derives the authentication key from the login password and
// the per-user auth salt. The server only ever sees its SHA-256 verifier.
func DeriveLoginKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, MasterKeySize)
}

// MakeVerifier hashes a derived login key into the value stored server-side
// and compared at login.
func MakeVerifier(loginKey []byte) []byte {
	hash := sha256.Sum256(loginKey)
	return hash[:]
}

// GenerateMasterKey returns a fresh random master key. Generated once per
// user at setup; after that the key only ever changes via explicit re-setup.
func GenerateMasterKey() []byte {
	return common.GenerateRandByteArray(MasterKeySize)
}

// Seal encrypts plaintext with AES-GCM under key, returning the ciphertext
// and the freshly generated nonce separately. The optional aad is
// authenticated but not encrypted.
//
// This is the form journal entry and goal records use on the wire and in the
// remote store: {ciphertext, nonce, aad?} with no plaintext payload ever
// crossing that boundary.
func Seal(key, plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	ciphertext = aead.Seal(nil, nonce, plaintext, aad)
	return ciphertext, nonce, nil
}

// Open decrypts a Seal result. It returns an opaque error on authentication
// failure; callers that need the wrong-password semantics map it themselves.
func Open(key, ciphertext, nonce, aad []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, errors.New("bad nonce length")
	}
	return aead.Open(nil, nonce, ciphertext, aad)
}

// SealEnvelope encrypts plaintext and returns the single-buffer
// nonce‖ciphertext form.
func SealEnvelope(key, plaintext []byte) ([]byte, error) {
	ciphertext, nonce, err := Seal(key, plaintext, nil)
	if err != nil {
		return nil, err
	}
	envelope := make([]byte, 0, len(nonce)+len(ciphertext))
	envelope = append(envelope, nonce...)
	envelope = append(envelope, ciphertext...)
	return envelope, nil
}

// OpenEnvelope splits and decrypts a nonce‖ciphertext buffer. A buffer
// shorter than the nonce cannot have been produced by SealEnvelope and is
// reported as common.ErrCorruptedWrappedKey.
func OpenEnvelope(key, envelope []byte) ([]byte, error) {
	if len(envelope) < NonceSize {
		return nil, common.ErrCorruptedWrappedKey
	}
	return Open(key, envelope[NonceSize:], envelope[:NonceSize], nil)
}

// WrapMasterKey encrypts the master key under a password-derived wrapping
// key and returns the nonce‖ciphertext blob persisted in the keyring record.
func WrapMasterKey(masterKey, password, salt []byte, p KDFParams) ([]byte, error) {
	wrappingKey, err := DeriveWrappingKey(password, salt, p)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(wrappingKey)
	return SealEnvelope(wrappingKey, masterKey)
}

// UnwrapMasterKey reverses WrapMasterKey. A wrong password and a tampered
// blob are indistinguishable: both return common.ErrInvalidPassword so the
// result cannot be used as a decryption oracle. Blobs too short to contain a
// nonce return common.ErrCorruptedWrappedKey.
func UnwrapMasterKey(wrapped, password, salt []byte, p KDFParams) ([]byte, error) {
	if len(wrapped) < NonceSize {
		return nil, common.ErrCorruptedWrappedKey
	}

	wrappingKey, err := DeriveWrappingKey(password, salt, p)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(wrappingKey)

	masterKey, err := OpenEnvelope(wrappingKey, wrapped)
	if err != nil {
		return nil, common.ErrInvalidPassword
	}
	return masterKey, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
