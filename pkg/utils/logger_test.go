package utils

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerLevelsAndFormats(t *testing.T) {
	require.NoError(t, InitLogger("debug", "text", "stdout", ""))
	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, Logger.Formatter)

	require.NoError(t, InitLogger("warn", "json", "stdout", ""))
	assert.Equal(t, logrus.WarnLevel, Logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, Logger.Formatter)

	// A bad level leaves the previous logger in place
	assert.Error(t, InitLogger("shouting", "json", "stdout", ""))
	assert.Equal(t, logrus.WarnLevel, Logger.GetLevel())

	require.NoError(t, InitLogger("info", "json", "stdout", ""))
}

func TestGetLoggerInitializesDefaults(t *testing.T) {
	Logger = nil
	logger := GetLogger()
	require.NotNil(t, logger)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}
