package rithmic

import "github.com/sirupsen/logrus"

// Logger is the structured logger type this library accepts from callers:
// an alias for *logrus.Logger. Leaving Config.Logger nil uses logrus's
// standard logger.
type Logger = *logrus.Logger

func newEntry(l Logger, plant string) *logrus.Entry {
	if l == nil {
		l = logrus.StandardLogger()
	}
	entry := logrus.NewEntry(l)
	if plant != "" {
		entry = entry.WithField("plant", plant)
	}
	return entry
}
