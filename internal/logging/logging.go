package logging

import (
	"fmt"
	"io"

	"github.com/googydeaath/dbhandle/internal/config"
	"github.com/sirupsen/logrus"
)

// TimestampFormat is used by both formatters
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// New builds a logger writing to out according to cfg
func New(cfg config.Log, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)

	switch cfg.Format {
	case "", "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: TimestampFormat,
		})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: TimestampFormat,
		})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return logger, nil
}
