package paddlebilling

// Config holds Paddle credentials.
type Config struct {
	APIKey        string `env:"PADDLE_API_KEY"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// Enabled reports whether Paddle is configured at all.
func (c Config) Enabled() bool {
	return c.APIKey != "" && c.WebhookSecret != ""
}
