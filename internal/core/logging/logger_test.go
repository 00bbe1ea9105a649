package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponent(t *testing.T) {
	var buf bytes.Buffer

	logger := Component(zerolog.New(&buf), "reviewapi")
	logger.Info().Ctx(WithSessionID(context.Background(), "s1")).Msg("sent")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "reviewapi", entry["component"])
	assert.Equal(t, "s1", entry["session_id"])
	assert.Equal(t, "sent", entry["message"])
}
