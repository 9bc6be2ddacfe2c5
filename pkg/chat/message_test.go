package chat

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeBatch(t *testing.T) {
	at := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	batch, err := EncodeBatch([]Message{
		{Role: RoleUser, Timestamp: at, Content: "ping"},
		{Role: RoleModel, Timestamp: at.Add(time.Second), Content: "pong"},
	})
	require.NoError(t, err)

	messages, err := DecodeBatch(batch)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, "ping", messages[0].Content)
	assert.True(t, at.Equal(messages[0].Timestamp))
	assert.Equal(t, RoleModel, messages[1].Role)
	assert.Equal(t, "pong", messages[1].Content)
}

func TestEncodeBatch_Rejects(t *testing.T) {
	t.Run("empty batch", func(t *testing.T) {
		_, err := EncodeBatch(nil)
		assert.Error(t, err)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := EncodeBatch([]Message{{Role: "system", Content: "x"}})
		assert.Error(t, err)
	})
}

func TestDecodeBatch(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantLen   int
		wantError bool
	}{
		{name: "empty array", data: `[]`, wantLen: 0},
		{name: "single message", data: `[{"role":"user","timestamp":"2025-10-01T12:00:00Z","content":"hi"}]`, wantLen: 1},
		{name: "invalid json", data: `[{"role":`, wantError: true},
		{name: "not an array", data: `{"role":"user"}`, wantError: true},
		{name: "unknown role", data: `[{"role":"tool","timestamp":"2025-10-01T12:00:00Z","content":"x"}]`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages, err := DecodeBatch([]byte(tt.data))
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, messages, tt.wantLen)
		})
	}
}

func TestWriteEvent(t *testing.T) {
	at := time.Date(2025, 10, 1, 12, 0, 0, 500, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, WriteEvent(&buf, NewEvent(RoleModel, at, "hello")))
	require.NoError(t, WriteEvent(&buf, NewEvent(RoleUser, at, "again")))

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	require.Len(t, lines, 2)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(lines[0], &decoded))
	assert.Equal(t, map[string]string{
		"role":      "model",
		"timestamp": "2025-10-01T12:00:00.0000005Z",
		"content":   "hello",
	}, decoded)

	event := NewEvent(RoleUser, at, "again")
	parsed, err := event.Time()
	require.NoError(t, err)
	assert.True(t, at.Equal(parsed))
}
