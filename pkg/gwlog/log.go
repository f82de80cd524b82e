// Package gwlog provides the gateway's structured logging, adapted from
// the teacher's pkg/util/log.go: the same global logrus logger and
// WithField-style helpers, scoped to connection handles and device ids
// instead of network devices and CLI operations.
package gwlog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the global logger instance used throughout the core, the
// daemon, and the admin CLI.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLevel sets the logging level from a string (e.g. "debug", "info").
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetOutput sets the log output destination.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat switches to JSON-formatted log lines, for deployments that
// ship logs to a collector instead of a terminal.
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// WithField returns a logger scoped to one field.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithHandle scopes a logger to a connection handle, the PDU dispatcher's
// unit of session identity.
func WithHandle(handle int) *logrus.Entry {
	return Logger.WithField("handle", handle)
}

// WithDeviceID scopes a logger to the 64-bit device id reported at
// registration.
func WithDeviceID(id uint64) *logrus.Entry {
	return Logger.WithField("device_id", id)
}

// WithUUID scopes a logger to a cloud-assigned device UUID.
func WithUUID(uuid string) *logrus.Entry {
	return Logger.WithField("uuid", uuid)
}
