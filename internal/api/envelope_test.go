package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeTransformerSuccess(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "200", map[string]string{"id": "pat-1"})
	require.NoError(t, err)

	env, ok := result.(envelope)
	require.True(t, ok)
	assert.Equal(t, apiVersion, env.Version)
	assert.True(t, env.Success)
	assert.NotNil(t, env.Data)
	assert.Nil(t, env.Error)
}

func TestEnvelopeTransformerError(t *testing.T) {
	for _, status := range []string{"400", "404", "409", "500"} {
		result, err := EnvelopeTransformer(nil, status, &APIError{Message: "nope"})
		require.NoError(t, err)

		env := result.(envelope)
		assert.False(t, env.Success, "status %s", status)
		assert.Nil(t, env.Data)
		assert.NotNil(t, env.Error)
	}
}
