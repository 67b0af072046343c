package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Env       string `mapstructure:"env"`
	Port      string `mapstructure:"port"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	TopicMessageSent string   `mapstructure:"topic_message_sent"`
}

type WSConfig struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	ReadTimeoutSeconds   int   `mapstructure:"read_timeout_seconds"`
	MaxMessageSizeBytes  int64 `mapstructure:"max_message_size_bytes"`
}

type ChatConfig struct {
	MaxContentLength   int `mapstructure:"max_content_length"`
	TypingExpiryMillis int `mapstructure:"typing_expiry_millis"`
	TypingSweepMillis  int `mapstructure:"typing_sweep_millis"`
	HistoryPageSize    int `mapstructure:"history_page_size"`
}

type Config struct {
	App   AppConfig   `mapstructure:"app"`
	Mongo MongoConfig `mapstructure:"mongo"`
	Redis RedisConfig `mapstructure:"redis"`
	Kafka KafkaConfig `mapstructure:"kafka"`
	WS    WSConfig    `mapstructure:"ws"`
	Chat  ChatConfig  `mapstructure:"chat"`

	// derived
	PingInterval  time.Duration
	WriteDeadline time.Duration
	ReadTimeout   time.Duration
	TypingExpiry  time.Duration
	TypingSweep   time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Port == "" {
		c.App.Port = "8084"
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = "messages"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "msging"
	}
	if c.WS.PingIntervalSeconds == 0 {
		c.WS.PingIntervalSeconds = 25
	}
	if c.WS.WriteDeadlineSeconds == 0 {
		c.WS.WriteDeadlineSeconds = 10
	}
	if c.WS.ReadTimeoutSeconds == 0 {
		c.WS.ReadTimeoutSeconds = 60
	}
	if c.WS.MaxMessageSizeBytes == 0 {
		c.WS.MaxMessageSizeBytes = 65536
	}
	if c.Chat.MaxContentLength == 0 {
		c.Chat.MaxContentLength = 4096
	}
	if c.Chat.TypingExpiryMillis == 0 {
		c.Chat.TypingExpiryMillis = 1500
	}
	if c.Chat.TypingSweepMillis == 0 {
		c.Chat.TypingSweepMillis = 500
	}
	if c.Chat.HistoryPageSize == 0 {
		c.Chat.HistoryPageSize = 50
	}
	c.PingInterval = time.Duration(c.WS.PingIntervalSeconds) * time.Second
	c.WriteDeadline = time.Duration(c.WS.WriteDeadlineSeconds) * time.Second
	c.ReadTimeout = time.Duration(c.WS.ReadTimeoutSeconds) * time.Second
	c.TypingExpiry = time.Duration(c.Chat.TypingExpiryMillis) * time.Millisecond
	c.TypingSweep = time.Duration(c.Chat.TypingSweepMillis) * time.Millisecond
}
