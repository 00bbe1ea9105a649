package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	ctx := WithSlot(WithSessionID(context.Background(), "sess-1"), "fix")

	assert.Equal(t, "sess-1", GetSessionID(ctx))
	assert.Equal(t, "fix", GetSlot(ctx))
}

func TestContextValues_NotPresent(t *testing.T) {
	assert.Empty(t, GetSessionID(context.Background()))
	assert.Empty(t, GetSlot(context.Background()))
}
