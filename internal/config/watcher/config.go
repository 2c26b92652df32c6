package watcher_config

import (
	"time"

	"github.com/windlab/runwatch/internal/obs"
	pginfra "github.com/windlab/runwatch/internal/repository/postgres"
)

type LogCfg struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	Env    string `mapstructure:"env"`
}

func (c LogCfg) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{Level: c.Level, Pretty: c.Pretty, App: "runwatch", Env: c.Env}
}

type OTELCfg struct {
	Enable      bool    `mapstructure:"enable"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

func (c OTELCfg) AsOTELConfig() obs.OTELConfig {
	return obs.OTELConfig{
		Enable:      c.Enable,
		Endpoint:    c.Endpoint,
		ServiceName: "runwatch-watcher",
		SampleRatio: c.SampleRatio,
	}
}

type KafkaCfg struct {
	Enable  bool     `mapstructure:"enable"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// WatchCfg tunes the sweep loop and its downstream pacing.
type WatchCfg struct {
	Interval       time.Duration `mapstructure:"interval"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	SendSpacing    time.Duration `mapstructure:"send_spacing"`
	ModelPause     time.Duration `mapstructure:"model_pause"`
	MetricsAddr    string        `mapstructure:"metrics_addr"`
	RetentionDays  int           `mapstructure:"retention_days"`
	WindowDays     int           `mapstructure:"window_days"`
	MinSamples     int           `mapstructure:"min_samples"`
}

// SourcesCfg carries per-provider endpoints and credentials. An empty
// API key leaves that model's adapter permanently inactive.
type SourcesCfg struct {
	AromeURL     string `mapstructure:"arome_url"`
	AromeAPIKey  string `mapstructure:"arome_api_key"`
	ArpegeURL    string `mapstructure:"arpege_url"`
	ArpegeAPIKey string `mapstructure:"arpege_api_key"`
	GFSBaseURL   string `mapstructure:"gfs_base_url"`
	ECMWFURL     string `mapstructure:"ecmwf_url"`
}

type TelegramCfg struct {
	Token         string        `mapstructure:"token"`
	AdminChatID   int64         `mapstructure:"admin_chat_id"`
	AlertCooldown time.Duration `mapstructure:"alert_cooldown"`
}

type Config struct {
	Log      LogCfg         `mapstructure:"log"`
	OTEL     OTELCfg        `mapstructure:"otel"`
	DB       pginfra.Config `mapstructure:"db"`
	Kafka    KafkaCfg       `mapstructure:"kafka"`
	Watch    WatchCfg       `mapstructure:"watch"`
	Sources  SourcesCfg     `mapstructure:"sources"`
	Telegram TelegramCfg    `mapstructure:"telegram"`
}
