package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the process logger: JSON to stdout, info level.
func New() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	l.SetOutput(os.Stdout)
	return l
}
