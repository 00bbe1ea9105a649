package commands

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSpinner_NotTerminal(t *testing.T) {
	var out bytes.Buffer
	called := false

	err := withSpinner(context.Background(), &out, "Working...", func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Empty(t, out.String(), "nothing is drawn on a non-terminal writer")

	boom := errors.New("boom")
	err = withSpinner(context.Background(), &out, "Working...", func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestSpinnerModel(t *testing.T) {
	m := newSpinnerModel("Reviewing...")
	assert.NotNil(t, m.Init())
	assert.Contains(t, m.View(), "Reviewing...")

	tick := m.spinner.Tick()
	require.IsType(t, spinner.TickMsg{}, tick)

	next, cmd := m.Update(tick)
	require.NotNil(t, cmd)
	m = next.(spinnerModel)
	assert.False(t, m.done)

	boom := errors.New("boom")
	next, cmd = m.Update(doneMsg{err: boom})
	m = next.(spinnerModel)
	assert.True(t, m.done)
	assert.ErrorIs(t, m.err, boom)
	assert.Empty(t, m.View())
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestSpinnerModel_IgnoresOtherMessages(t *testing.T) {
	m := newSpinnerModel("Formatting...")
	next, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Nil(t, cmd)
	assert.False(t, next.(spinnerModel).done)
}
