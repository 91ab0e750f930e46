package alertd_config

import (
	"time"

	"github.com/soladkov/beatkeeper/internal/alerts"
	"github.com/soladkov/beatkeeper/internal/mail"
	"github.com/soladkov/beatkeeper/internal/obs"
	pg "github.com/soladkov/beatkeeper/internal/repository/postgres"
)

type KafkaCfg struct {
	Brokers       []string      `mapstructure:"brokers"`
	GroupID       string        `mapstructure:"group_id"`
	Topic         string        `mapstructure:"topic"`
	FromBeginning bool          `mapstructure:"from_beginning"`
	MinBackoff    time.Duration `mapstructure:"min_backoff"`
	MaxBackoff    time.Duration `mapstructure:"max_backoff"`
}

type AlertCfg struct {
	PerNotifyTimeout time.Duration `mapstructure:"per_notify_timeout"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"`
	MetricsAddr      string        `mapstructure:"metrics_addr"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Config struct {
	DB       pg.Config        `mapstructure:"db"`
	Kafka    KafkaCfg         `mapstructure:"kafka"`
	Alert    AlertCfg         `mapstructure:"alert"`
	App      alerts.AppConfig `mapstructure:"app"`
	SMTP     mail.SMTPConfig  `mapstructure:"smtp"`
	OTEL     OTEL             `mapstructure:"otel"`
	LogLevel string           `mapstructure:"log_level"`
}
