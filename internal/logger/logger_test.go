package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactKVsMasksSensitiveKeys(t *testing.T) {
	kvs := redactKVs([]interface{}{
		"user_id", "user-1",
		"password", "hunter2",
		"Notes", "private journal text",
	})
	assert.Equal(t, []interface{}{
		"user_id", "user-1",
		"password", "[REDACTED]",
		"Notes", "[REDACTED]",
	}, kvs)
}

func TestRedactKVsHandlesOddLengthAndNonStringKeys(t *testing.T) {
	kvs := redactKVs([]interface{}{42, "value", "dangling"})
	assert.Equal(t, []interface{}{42, "value", "dangling"}, kvs)
}

func TestNewBuildsBothModes(t *testing.T) {
	for _, mode := range []string{"", "dev", "prod", "production"} {
		log, err := New(mode)
		assert.NoError(t, err, "mode %q", mode)
		assert.NotNil(t, log)
	}
}
