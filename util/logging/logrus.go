package logging

import (
	"os"

	"github.com/onepanelio/podlogs/util/env"
	"github.com/sirupsen/logrus"
)

func init() {
	logrus.SetOutput(os.Stderr)

	if env.GetEnv("LOGGING_ENABLE_CALLER_TRACE", "false") == "true" {
		logrus.SetReportCaller(true)
	}

	level, err := logrus.ParseLevel(env.GetEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
