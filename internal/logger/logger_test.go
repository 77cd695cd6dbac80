package logger

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// capture redirects output for the duration of a test.
func capture(t *testing.T, v bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(v)
	t.Cleanup(func() {
		SetVerbose(false)
		SetTimestamps(false)
		SetOutput(os.Stderr)
		now = time.Now
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	buf := capture(t, true)

	Debug("test message %s", "arg")

	assert.Equal(t, "[DEBUG] test message arg\n", buf.String())
}

func TestDebugInfoWarn_WhenNotVerbose(t *testing.T) {
	buf := capture(t, false)

	Debug("a")
	Info("b")
	Warn("c")
	Section("d")

	assert.Empty(t, buf.String())
}

func TestError_AlwaysPrinted(t *testing.T) {
	buf := capture(t, false)

	Error("cache write failed: %v", "disk full")

	assert.Equal(t, "[ERROR] cache write failed: disk full\n", buf.String())
}

func TestSection(t *testing.T) {
	buf := capture(t, true)

	Section("Retrieval")

	assert.Equal(t, "\n=== Retrieval ===\n", buf.String())
}

func TestTimestamps(t *testing.T) {
	buf := capture(t, true)
	SetTimestamps(true)
	now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	Info("ready")

	assert.Equal(t, "2026-03-01T12:00:00Z [INFO] ready\n", buf.String())
}

func TestScope_TagsTenant(t *testing.T) {
	buf := capture(t, true)
	log := ForTenant("acme")

	log.Info("retrieved %d candidates", 3)
	log.Warn("cache miss")

	assert.Equal(t,
		"[INFO] tenant=acme retrieved 3 candidates\n[WARN] tenant=acme cache miss\n",
		buf.String())
}

func TestScope_ErrorIgnoresVerbose(t *testing.T) {
	buf := capture(t, false)

	ForTenant("acme").Debug("hidden")
	ForTenant("acme").Error("evidence insert failed")

	assert.Equal(t, "[ERROR] tenant=acme evidence insert failed\n", buf.String())
}
