package cmd

import (
	"os"

	"github.com/dbquery-gateway/gateway/internal/config"
)

const (
	exitOK             = 0
	exitConfigError    = 1
	exitTransientError = 2
	exitSafetyRefused  = 3
)

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		os.Setenv("DBGATEWAY_CONFIG", configPath)
	}
	return config.Load()
}
