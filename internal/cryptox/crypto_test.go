package cryptox

import (
	"bytes"
	"testing"

	"github.com/quietpage/quietpage/internal/common"
	"github.com/stretchr/testify/require"
)

func TestSealOpen_RoundTrip(t *testing.T) {
	key := GenerateMasterKey()
	plaintext := []byte("Hello world")

	ciphertext, nonce, err := Seal(key, plaintext, nil)
	require.NoError(t, err)
	require.Len(t, nonce, NonceSize)
	require.NotEqual(t, plaintext, ciphertext)

	got, err := Open(key, ciphertext, nonce, nil)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestSealOpen_AADIsAuthenticated(t *testing.T) {
	key := GenerateMasterKey()

	ciphertext, nonce, err := Seal(key, []byte("body"), []byte("2025-01-10"))
	require.NoError(t, err)

	_, err = Open(key, ciphertext, nonce, []byte("2025-01-11"))
	require.Error(t, err, "changing aad must fail authentication")

	got, err := Open(key, ciphertext, nonce, []byte("2025-01-10"))
	require.NoError(t, err)
	require.Equal(t, []byte("body"), got)
}

func TestOpen_WrongKeyFails(t *testing.T) {
	ciphertext, nonce, err := Seal(GenerateMasterKey(), []byte("secret"), nil)
	require.NoError(t, err)

	_, err = Open(GenerateMasterKey(), ciphertext, nonce, nil)
	require.Error(t, err)
}

func TestEnvelope_RoundTripAndShape(t *testing.T) {
	key := GenerateMasterKey()
	plaintext := []byte("draft body")

	envelope, err := SealEnvelope(key, plaintext)
	require.NoError(t, err)
	// nonce + ciphertext(plaintext+16 byte tag)
	require.Len(t, envelope, NonceSize+len(plaintext)+16)

	got, err := OpenEnvelope(key, envelope)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestOpenEnvelope_TooShort(t *testing.T) {
	_, err := OpenEnvelope(GenerateMasterKey(), []byte{1, 2, 3})
	require.ErrorIs(t, err, common.ErrCorruptedWrappedKey)
}

func TestWrapUnwrapMasterKey_Idempotence(t *testing.T) {
	masterKey := GenerateMasterKey()
	salt := common.GenerateRandByteArray(SaltSize)
	params := DefaultKDFParams()

	wrapped, err := WrapMasterKey(masterKey, []byte("correct-horse"), salt, params)
	require.NoError(t, err)

	got, err := UnwrapMasterKey(wrapped, []byte("correct-horse"), salt, params)
	require.NoError(t, err)
	require.True(t, bytes.Equal(masterKey, got))
}

func TestUnwrapMasterKey_WrongPassword(t *testing.T) {
	masterKey := GenerateMasterKey()
	salt := common.GenerateRandByteArray(SaltSize)
	params := DefaultKDFParams()

	wrapped, err := WrapMasterKey(masterKey, []byte("correct-horse"), salt, params)
	require.NoError(t, err)

	_, err = UnwrapMasterKey(wrapped, []byte("wrong-password"), salt, params)
	require.ErrorIs(t, err, common.ErrInvalidPassword)
}

func TestUnwrapMasterKey_TamperedBlobLooksLikeWrongPassword(t *testing.T) {
	masterKey := GenerateMasterKey()
	salt := common.GenerateRandByteArray(SaltSize)
	params := DefaultKDFParams()

	wrapped, err := WrapMasterKey(masterKey, []byte("correct-horse"), salt, params)
	require.NoError(t, err)

	wrapped[len(wrapped)-1] ^= 0xff
	_, err = UnwrapMasterKey(wrapped, []byte("correct-horse"), salt, params)
	require.ErrorIs(t, err, common.ErrInvalidPassword,
		"tag mismatch must not be distinguishable from a wrong password")
}

func TestUnwrapMasterKey_ShortBlob(t *testing.T) {
	salt := common.GenerateRandByteArray(SaltSize)
	_, err := UnwrapMasterKey([]byte{0xde, 0xad}, []byte("pw"), salt, DefaultKDFParams())
	require.ErrorIs(t, err, common.ErrCorruptedWrappedKey)
}

func TestDeriveWrappingKey_PBKDF2Compat(t *testing.T) {
	salt := common.GenerateRandByteArray(SaltSize)
	params := KDFParams{Algorithm: KDFPBKDF2SHA256, Iterations: 1000, Length: 32}

	a, err := DeriveWrappingKey([]byte("pw"), salt, params)
	require.NoError(t, err)
	b, err := DeriveWrappingKey([]byte("pw"), salt, params)
	require.NoError(t, err)
	require.Equal(t, a, b, "derivation must be deterministic")
	require.Len(t, a, 32)
}

func TestDeriveWrappingKey_UnknownAlgorithm(t *testing.T) {
	_, err := DeriveWrappingKey([]byte("pw"), nil, KDFParams{Algorithm: "scrypt"})
	require.Error(t, err)
}

func TestMakeVerifier_StableAndKeyed(t *testing.T) {
	salt := common.GenerateRandByteArray(SaltSize)

	k1 := DeriveLoginKey([]byte("pw"), salt)
	k2 := DeriveLoginKey([]byte("pw"), salt)
	require.Equal(t, MakeVerifier(k1), MakeVerifier(k2))

	other := DeriveLoginKey([]byte("other"), salt)
	require.NotEqual(t, MakeVerifier(k1), MakeVerifier(other))
}
