package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/orderbus/internal/errors"
)

type light string

const (
	red    light = "RED"
	green  light = "GREEN"
	yellow light = "YELLOW"
	off    light = "OFF"
)

func lightTable() Table[light] {
	return NewTable("light", map[light][]light{
		red:    {green, off},
		green:  {yellow, off},
		yellow: {red, off},
		off:    {},
	})
}

func TestTable_CanTransition(t *testing.T) {
	table := lightTable()

	assert.True(t, table.CanTransition(red, green))
	assert.True(t, table.CanTransition(yellow, off))
	assert.False(t, table.CanTransition(red, yellow))
	assert.False(t, table.CanTransition(red, red))
	assert.False(t, table.CanTransition(off, red))
	assert.False(t, table.CanTransition("BLUE", red))
}

func TestTable_Transition(t *testing.T) {
	table := lightTable()

	require.NoError(t, table.Transition(green, yellow))

	err := table.Transition(green, red)
	require.Error(t, err)

	var transitionErr *InvalidStateTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, "light", transitionErr.Aggregate)
	assert.Equal(t, "GREEN", transitionErr.From)
	assert.Equal(t, "RED", transitionErr.To)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, "invalid light state transition from GREEN to RED", err.Error())
}

func TestTable_Introspection(t *testing.T) {
	table := lightTable()

	assert.Equal(t, "light", table.Aggregate())
	assert.True(t, table.IsTerminal(off))
	assert.False(t, table.IsTerminal(red))
	assert.True(t, table.Has(yellow))
	assert.False(t, table.Has("BLUE"))
	assert.Equal(t, []light{green, off, red, yellow}, table.States())

	targets := table.Targets(red)
	targets[0] = off
	assert.Equal(t, []light{green, off}, table.Targets(red), "targets must be a copy")
}

func TestTable_Parse(t *testing.T) {
	table := lightTable()

	s, err := table.Parse("GREEN")
	require.NoError(t, err)
	assert.Equal(t, green, s)

	_, err = table.Parse("green")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestNewTable_PanicsOnUndeclaredTarget(t *testing.T) {
	assert.Panics(t, func() {
		NewTable("broken", map[light][]light{red: {green}})
	})
}
