package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"user_id", "u1",
		"api_key", "sk-123",
		"Authorization", "Bearer x",
		"payload", map[string]interface{}{"password": "hunter2", "name": "bob"},
		"dangling",
	})
	assert.Equal(t, "u1", out[1])
	assert.Equal(t, redacted, out[3])
	assert.Equal(t, redacted, out[5])
	assert.Equal(t, map[string]interface{}{"password": redacted, "name": "bob"}, out[7])
	assert.Equal(t, "dangling", out[8])
}

func TestLooksLikeJWT(t *testing.T) {
	assert.True(t, looksLikeJWT("eyJhbGciOiJIUzI1NiJ9.eyJlbWFpbCI6ImFAYi5jIn0.sig"))
	assert.False(t, looksLikeJWT("plain.text"))
}

func TestLoggerRedactsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("secret", "s3cr3t").Info("hello", "token", "abc", "week_id", "w1")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, redacted, fields["secret"])
		assert.Equal(t, redacted, fields["token"])
		assert.Equal(t, "w1", fields["week_id"])
	}
}
