package alerts

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/soladkov/beatkeeper/internal/domain/channel"
	"github.com/soladkov/beatkeeper/internal/domain/notification"
)

// AppConfig carries the site-wide settings transports need. It is injected
// explicitly; transports never reach for ambient globals.
type AppConfig struct {
	SiteRoot     string `mapstructure:"site_root"`
	PingEndpoint string `mapstructure:"ping_endpoint"`
	SecretKey    string `mapstructure:"secret_key"`

	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	PushoverAPIToken string `mapstructure:"pushover_api_token"`
	TwilioAccountSID string `mapstructure:"twilio_account_sid"`
	TwilioAuthToken  string `mapstructure:"twilio_auth_token"`
	TwilioFrom       string `mapstructure:"twilio_from"`
}

// Deps is what transport factories get to work with: a bounded-timeout HTTP
// client, an email sender, the channel repo for transports that persist
// refreshed credentials, and the injected app settings.
type Deps struct {
	HTTP     *http.Client
	Mail     notification.EmailSender
	Channels channel.Repo
	App      AppConfig
	Log      *zap.Logger
}
