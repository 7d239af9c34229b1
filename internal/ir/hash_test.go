package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadDigestDeterminism(t *testing.T) {
	payload := map[string]any{"title": "Buy milk", "id": 3}

	c1, d1, err := PayloadDigest(payload)
	require.NoError(t, err)
	c2, d2, err := PayloadDigest(map[string]any{"id": 3, "title": "Buy milk"})
	require.NoError(t, err)

	assert.Equal(t, c1, c2)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64, "SHA-256 hex is 64 characters")
}

func TestPayloadDigestNil(t *testing.T) {
	canonical, digest, err := PayloadDigest(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(canonical))
	assert.NotEmpty(t, digest)

	typed, typedDigest, err := PayloadDigest([]string(nil))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(typed))
	assert.Equal(t, digest, typedDigest)
}

func TestActionDigestChangesWithInput(t *testing.T) {
	base := Action{Kind: "todo.load", Shape: "todo", Payload: []string{"a"}, Seq: 1}

	d1, err := ActionDigest(base)
	require.NoError(t, err)

	other := base
	other.Seq = 2
	d2, err := ActionDigest(other)
	require.NoError(t, err)

	other = base
	other.Kind = "todo.add"
	d3, err := ActionDigest(other)
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2, "different seq should produce different digests")
	assert.NotEqual(t, d1, d3, "different kind should produce different digests")
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{}`)
	assert.NotEqual(t, hashWithDomain(DomainPayload, data), hashWithDomain(DomainAction, data))
}
