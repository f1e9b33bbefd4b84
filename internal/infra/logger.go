package infra

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/umalmyha/customer-registry/internal/config"
)

// Logger builds logrus logger writing to out
func Logger(cfg config.LogCfg, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level - %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
