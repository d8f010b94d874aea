package cmd

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// setupLogging routes diagnostic logs to out, with colours only on a terminal
func setupLogging(out io.Writer, debug bool) {
	colors := false
	if f, ok := out.(*os.File); ok {
		colors = term.IsTerminal(int(f.Fd()))
	}

	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors: !colors,
		FullTimestamp: true,
	})

	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}
}
