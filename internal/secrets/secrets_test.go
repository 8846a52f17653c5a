package secrets

import (
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
)

func TestEncryptDecrypt(t *testing.T) {
	key, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity() error = %v", err)
	}
	identity, err := age.ParseX25519Identity(key)
	if err != nil {
		t.Fatalf("generated identity does not parse: %v", err)
	}

	encrypted, err := Encrypt("sk-test-123", identity.Recipient())
	assert.NoError(t, err)
	assert.NotContains(t, encrypted, "sk-test-123")

	plain, err := Decrypt(encrypted, identity)
	assert.NoError(t, err)
	assert.Equal(t, "sk-test-123", plain)

	other, _ := age.GenerateX25519Identity()
	_, err = Decrypt(encrypted, other)
	assert.Error(t, err)

	_, err = Decrypt("not base64!", identity)
	assert.Error(t, err)
}

func TestGetAgeIdentity(t *testing.T) {
	t.Setenv("CARENOTE_ENCRYPTION_KEY", "")
	_, err := GetAgeIdentity()
	assert.Error(t, err)

	t.Setenv("CARENOTE_ENCRYPTION_KEY", "garbage")
	_, err = GetAgeIdentity()
	assert.Error(t, err)

	key, _ := GenerateIdentity()
	t.Setenv("CARENOTE_ENCRYPTION_KEY", key)
	identity, err := GetAgeIdentity()
	assert.NoError(t, err)
	assert.Equal(t, key, identity.String())
}

func TestDigest(t *testing.T) {
	assert.Len(t, Digest("abc"), 16)
	assert.Equal(t, Digest("abc"), Digest("abc"))
	assert.NotEqual(t, Digest("abc"), Digest("abd"))
}
