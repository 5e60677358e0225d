package main

import "time"

const (
	storagePostgres = "postgres"
	storageMemory   = "memory"
)

type appConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"APP_SERVICE_NAME" envDefault:"clubkit"`
	LogLevel    string `env:"LOG_LEVEL"`

	// Storage selects postgres+redis or the in-process stores for local runs.
	Storage    string `env:"STORAGE_BACKEND" envDefault:"postgres"`
	PolicyFile string `env:"LIFECYCLE_POLICY_FILE"`

	// AcceptURL is formatted with the club id for proposal emails.
	AcceptURL string `env:"EXTENSION_ACCEPT_URL" envDefault:"http://localhost:8080/clubs/%s/extension/accept"`

	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	SweepTimeout   time.Duration `env:"SWEEP_TIMEOUT" envDefault:"4m"`
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"10s"`
	HealthTimeout  time.Duration `env:"HEALTHCHECK_TIMEOUT" envDefault:"2s"`
}
