package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Portal   PortalConfig   `yaml:"portal"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                    string `yaml:"host"`
	Port                    int    `yaml:"port"`
	TripAssignedTopicName   string `yaml:"trip_assigned_topic_name"`
	PickupResolvedTopicName string `yaml:"pickup_resolved_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type PortalConfig struct {
	GRPCAddr           string `yaml:"grpc_addr"`
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	// FeedMode: "postgres" | "http" | "fake"
	FeedMode            string `yaml:"feed_mode"`
	SyncIntervalSeconds int    `yaml:"sync_interval_seconds"`

	SessionKey              string `yaml:"session_key"`
	SessionTTLSeconds       int    `yaml:"session_ttl_seconds"`
	LoginRateLimitPerMinute int    `yaml:"login_rate_limit_per_minute"`

	APIBaseURL        string `yaml:"api_base_url"`
	APITimeoutSeconds int    `yaml:"api_timeout_seconds"`
	DeviceUUID        string `yaml:"device_uuid"`
	DeviceName        string `yaml:"device_name"`
	FCMToken          string `yaml:"fcm_token"`
	ClientID          string `yaml:"client_id"`
	ClientSecret      string `yaml:"client_secret"`

	DefaultOfficeID string         `yaml:"default_office_id"`
	Offices         []OfficeConfig `yaml:"offices"`
}

// WorkerConfig настраивает feed-worker: он наполняет postgres, из которого читает портал.
type WorkerConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`
	// PollPortal включает опрос portal API в дополнение к kafka.
	PollPortal             bool `yaml:"poll_portal"`
	PollIntervalSeconds    int  `yaml:"poll_interval_seconds"`
	PollRateLimitPerMinute int  `yaml:"poll_rate_limit_per_minute"`
}

type OfficeConfig struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	Address      string  `yaml:"address"`
	Phone        string  `yaml:"phone"`
	WorkingHours string  `yaml:"working_hours"`
	Lat          float64 `yaml:"lat"`
	Lng          float64 `yaml:"lng"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
