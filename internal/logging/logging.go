// Package logging configures logrus and bridges it to the libraries that
// bring their own logger interface.
package logging

import (
	"io"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/layer-3/walletauth/config"
	"github.com/sirupsen/logrus"
)

// New builds a JSON logger from cfg. When cfg.File is set, output is appended
// to that file instead of stderr.
func New(cfg config.LoggingConfig) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0660) //#nosec G302 -- Log files should be rw-rw-r--
		if err != nil {
			return nil, nil, err
		}
		logger.SetOutput(f)
		closer = f
	}

	if cfg.Level != "" {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			closer.Close()
			return nil, nil, err
		}
		logger.SetLevel(level)
	}

	return logger, closer, nil
}

// Fields returns the static fields every entry should carry
func Fields(cfg config.LoggingConfig) logrus.Fields {
	f := logrus.Fields{}
	for k, v := range cfg.Fields {
		f[k] = v
	}
	return f
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// WatermillAdapter lets watermill log through logrus
type WatermillAdapter struct {
	entry *logrus.Entry
}

// NewWatermillAdapter wraps log for use as a watermill.LoggerAdapter
func NewWatermillAdapter(log logrus.FieldLogger) *WatermillAdapter {
	return &WatermillAdapter{entry: log.WithField("component", "watermill")}
}

func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.entry.WithFields(logrus.Fields(fields)).WithError(err).Error(msg)
}

func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.entry.WithFields(logrus.Fields(fields)).Info(msg)
}

func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.entry.WithFields(logrus.Fields(fields)).Debug(msg)
}

func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.entry.WithFields(logrus.Fields(fields)).Trace(msg)
}

func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{entry: a.entry.WithFields(logrus.Fields(fields))}
}
