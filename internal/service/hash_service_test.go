package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheapArgon2 keeps the tests fast.
var cheapArgon2 = Argon2Params{Time: 1, MemoryKiB: 1024, Threads: 1}

func TestArgon2HashService_HashAndVerify(t *testing.T) {
	svc := NewArgon2HashService(cheapArgon2)

	hash, err := svc.Hash("paella-lover-42")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))

	ok, err := svc.Verify("paella-lover-42", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Verify("paella-lover-43", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2HashService_DefaultsFillZeroFields(t *testing.T) {
	svc := NewArgon2HashService(Argon2Params{})

	hash, err := svc.Hash("x")
	require.NoError(t, err)
	assert.Contains(t, hash, "m=65536,t=1,p=4")
}

func TestArgon2HashService_SaltsDiffer(t *testing.T) {
	svc := NewArgon2HashService(cheapArgon2)

	a, err := svc.Hash("same")
	require.NoError(t, err)
	b, err := svc.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestArgon2HashService_VerifiesWithStoredParams(t *testing.T) {
	old := NewArgon2HashService(Argon2Params{Time: 2, MemoryKiB: 512, Threads: 1})
	hash, err := old.Hash("s3cret-pass")
	require.NoError(t, err)

	current := NewArgon2HashService(cheapArgon2)
	ok, err := current.Verify("s3cret-pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, current.NeedsRehash(hash))
	assert.False(t, old.NeedsRehash(hash))
}

func TestArgon2HashService_Malformed(t *testing.T) {
	svc := NewArgon2HashService(cheapArgon2)

	for _, encoded := range []string{
		"not-a-hash",
		"$bcrypt$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$",
	} {
		_, err := svc.Verify("pw", encoded)
		assert.ErrorIs(t, err, errMalformedHash, encoded)
		assert.True(t, svc.NeedsRehash(encoded), encoded)
	}
}
