package logging

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/layer-3/walletauth/config"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	file := filepath.Join(t.TempDir(), "walletauth.log")

	logger, closer, err := New(config.LoggingConfig{Level: "debug", File: file})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("identity", "0xabc").Debug("challenge issued")
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(file)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Equal(t, "challenge issued", entry["msg"])
	assert.Equal(t, "0xabc", entry["identity"])
}

func TestNew_Defaults(t *testing.T) {
	logger, closer, err := New(config.LoggingConfig{})
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestNew_BadLevel(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestFields(t *testing.T) {
	f := Fields(config.LoggingConfig{Fields: map[string]string{"service": "walletauth"}})
	assert.Equal(t, logrus.Fields{"service": "walletauth"}, f)
}

func TestWatermillAdapter(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)

	var adapter watermill.LoggerAdapter = NewWatermillAdapter(logger)
	adapter = adapter.With(watermill.LogFields{"topic": "walletauth.events"})

	adapter.Info("published", watermill.LogFields{"uuid": "1"})
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "watermill", entry.Data["component"])
	assert.Equal(t, "walletauth.events", entry.Data["topic"])
	assert.Equal(t, "1", entry.Data["uuid"])

	adapter.Error("publish failed", errors.New("boom"), nil)
	entry = hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.EqualError(t, entry.Data[logrus.ErrorKey].(error), "boom")

	adapter.Debug("debug", nil)
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	adapter.Trace("trace", nil)
	assert.Equal(t, logrus.TraceLevel, hook.LastEntry().Level)
}
