package memory

import (
	"context"
	"testing"
	"time"

	"github.com/colonyops/lens/internal/core/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryStore_CopiesOnSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := NewHistoryStore()

	sess := review.NewSession("a", review.DefaultDraft(), "r", time.Now())
	sessions := []review.Session{sess}
	require.NoError(t, s.SaveAll(ctx, sessions))

	sessions[0].Conversation = append(sessions[0].Conversation, review.UserMessage("leak"))

	got := s.LoadAll(ctx)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Conversation)

	got[0].Review = "changed"
	assert.Equal(t, "r", s.LoadAll(ctx)[0].Review)
	assert.Equal(t, 1, s.Saves())
}

func TestHistoryStore_FailSave(t *testing.T) {
	s := NewHistoryStore(review.NewSession("a", review.DefaultDraft(), "r", time.Now()))
	s.SetFailSave(assert.AnError)

	err := s.SaveAll(context.Background(), nil)
	require.ErrorIs(t, err, review.ErrPersistence)
	assert.Len(t, s.LoadAll(context.Background()), 1)
	assert.Zero(t, s.Saves())
}
