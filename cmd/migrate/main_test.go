package main

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	t.Run("known_commands", func(t *testing.T) {
		for _, args := range [][]string{{"up"}, {"down"}, {"steps", "-1"}, {"force", "3"}, {"version"}} {
			act, err := parseAction(args)
			require.NoError(t, err, args)
			assert.NotNil(t, act, args)
		}
	})

	t.Run("no_command", func(t *testing.T) {
		_, err := parseAction(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "usage")
	})

	t.Run("unknown_command", func(t *testing.T) {
		_, err := parseAction([]string{"sideways"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"sideways"`)
	})

	t.Run("steps_needs_number", func(t *testing.T) {
		_, err := parseAction([]string{"steps"})
		require.Error(t, err)

		_, err = parseAction([]string{"force", "two"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"two"`)
	})
}

func TestIgnoreNoChange(t *testing.T) {
	assert.NoError(t, ignoreNoChange(migrate.ErrNoChange))
	assert.NoError(t, ignoreNoChange(nil))

	failed := errors.New("dirty database")
	assert.ErrorIs(t, ignoreNoChange(failed), failed)
	assert.ErrorIs(t, report(zerolog.Nop(), "up", failed), failed)
}
