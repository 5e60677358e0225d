// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
// LoadEnv reads one or more .env files, and Load parses the environment into
// any struct using `env` field tags. Every configuration type is parsed once
// and cached for the life of the process; Reload and ResetCache exist for
// tests and for hot paths that must observe changed variables.
//
// Each package that needs configuration declares its own struct:
//
//	var pgCfg pg.Config
//	config.MustLoad(&pgCfg)
//
//	var policy lifecycle.Policy
//	if err := config.Load(&policy); err != nil {
//		return err
//	}
package config
