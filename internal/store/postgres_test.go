package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeStrings(t *testing.T) {
	got, err := decodeStrings(`["rock","folk"]`)
	require.NoError(t, err)
	require.Equal(t, []string{"rock", "folk"}, got)

	for _, empty := range []string{"", "null", "[]"} {
		got, err = decodeStrings(empty)
		require.NoError(t, err)
		require.Nil(t, got)
	}

	_, err = decodeStrings(`{`)
	require.Error(t, err)
}

func TestTextArray(t *testing.T) {
	require.NotNil(t, textArray(nil))
	require.Empty(t, textArray(nil))
	require.Equal(t, []string{"a", "b"}, textArray([]string{"a", "b"}))
}
