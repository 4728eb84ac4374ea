package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide structured logger. It is usable before Init is called.
var Log = logrus.New()

// Init sets the level and output format. Unknown levels fall back to info;
// format "text" selects the human readable formatter, anything else JSON.
func Init(level, format string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if format == "text" {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// Discard silences the logger, used by tests.
func Discard() {
	Log.SetOutput(io.Discard)
}
