package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestDeterminism(t *testing.T) {
	v := Tuple{Str("op"), StringSet("C"), StringSet("A", "B")}

	d1, err := Digest(DomainReaction, v)
	require.NoError(t, err)
	d2, err := Digest(DomainReaction, Tuple{Str("op"), StringSet("C"), StringSet("B", "A")})
	require.NoError(t, err)

	assert.Equal(t, d1, d2, "Digest must be deterministic over logical content")
	assert.Len(t, d1, 64, "SHA-256 hex is 64 characters")
}

func TestDigestDomainSeparation(t *testing.T) {
	d1, err := Digest(DomainMolecule, Str("CCO"))
	require.NoError(t, err)
	d2, err := Digest(DomainOperator, Str("CCO"))
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2, "Different domains should produce different digests")
}

func TestDigestString(t *testing.T) {
	d, err := Digest(DomainMolecule, Str("CCO"))
	require.NoError(t, err)

	assert.Equal(t, d, DigestString(DomainMolecule, "CCO"))
	assert.NotEqual(t, d, DigestString(DomainMolecule, "CCN"))
}

func TestDigestRejectsNil(t *testing.T) {
	_, err := Digest(DomainReaction, nil)
	assert.Error(t, err)
}
