package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NamanBalaji/segreq/internal/logger"
)

func TestInitLogging_WritesFileInDebugMode(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "segreq.log")

	require.NoError(t, logger.InitLogging(true, logPath))
	defer logger.Close()

	logger.Infof("built request for %s", "http://localhost/file")
	logger.Errorf("boom %d", 42)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "built request for http://localhost/file")
	assert.Contains(t, string(data), "boom 42")
}

func TestSetOutput_SilentWithoutDebug(t *testing.T) {
	require.NoError(t, logger.InitLogging(false, ""))

	var buf bytes.Buffer
	logger.SetOutput(&buf)

	logger.Debugf("hidden")
	logger.Warnf("hidden too")

	assert.Empty(t, buf.String())
}

func TestSetOutput_DebugEnabled(t *testing.T) {
	require.NoError(t, logger.InitLogging(true, ""))
	defer func() { logger.DebugEnabled = false }()

	var buf bytes.Buffer
	logger.SetOutput(&buf)

	logger.Debugf("segment %d", 3)
	logger.Warnf("entity length changed")

	assert.Contains(t, buf.String(), "segment 3")
	assert.Contains(t, buf.String(), "entity length changed")
}
