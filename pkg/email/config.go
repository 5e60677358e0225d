package email

// Config selects and configures the delivery backend. Without a Postmark
// server token messages go to FileSender under OutboxDir.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	MessageStream        string `env:"POSTMARK_MESSAGE_STREAM" envDefault:"outbound"`
	From                 string `env:"EMAIL_FROM" envDefault:"noreply@clubkit.local"`
	ReplyTo              string `env:"EMAIL_REPLY_TO" envDefault:"support@clubkit.local"`
	OutboxDir            string `env:"EMAIL_OUTBOX_DIR" envDefault:"./tmp/outbox"`
}

// Enabled reports whether real delivery is configured.
func (c Config) Enabled() bool {
	return c.PostmarkServerToken != ""
}
