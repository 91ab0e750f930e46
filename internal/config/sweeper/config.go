package sweeper_config

import (
	"time"

	"github.com/soladkov/beatkeeper/internal/obs"
	pg "github.com/soladkov/beatkeeper/internal/repository/postgres"
)

type KafkaCfg struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type SweepCfg struct {
	Tick        time.Duration `mapstructure:"tick"`
	BatchLimit  int           `mapstructure:"batch_limit"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
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
	DB       pg.Config `mapstructure:"db"`
	Kafka    KafkaCfg  `mapstructure:"kafka"`
	Sweep    SweepCfg  `mapstructure:"sweep"`
	OTEL     OTEL      `mapstructure:"otel"`
	LogLevel string    `mapstructure:"log_level"`
}
