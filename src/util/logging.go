package util

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the package-wide logger used for the verbose lowering trace (-v) and other diagnostic
// chatter outside the SourceError path.
var Log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetLevel(logrus.WarnLevel)
	return l
}

// SetVerbose raises the logger to trace level when -v is set, so every lowering step's Debugf/Tracef
// calls are actually emitted.
func SetVerbose(verbose bool) {
	if verbose {
		Log.SetLevel(logrus.TraceLevel)
	}
}
