package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Cache    CacheConfig    `yaml:"cache"`
	Search   SearchConfig   `yaml:"search"`
	Loyalty  LoyaltyConfig  `yaml:"loyalty"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
	// SearchRPS bounds search throughput per instance; zero disables it.
	SearchRPS   float64 `yaml:"search_rps"`
	SearchBurst int     `yaml:"search_burst"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	LoyaltyTopic       string   `yaml:"loyalty_topic"`
	GroupID            string   `yaml:"group_id"`
}

type CacheConfig struct {
	AirportsTTLSeconds int `yaml:"airports_ttl_seconds"`
	FlightTTLSeconds   int `yaml:"flight_ttl_seconds"`
	SearchTTLSeconds   int `yaml:"search_ttl_seconds"`
}

func (c CacheConfig) AirportsTTL() time.Duration {
	return secondsOr(c.AirportsTTLSeconds, 600)
}

func (c CacheConfig) FlightTTL() time.Duration {
	return secondsOr(c.FlightTTLSeconds, 180)
}

func (c CacheConfig) SearchTTL() time.Duration {
	return secondsOr(c.SearchTTLSeconds, 120)
}

type SearchConfig struct {
	Hubs           []string `yaml:"hubs"`
	MaxConnections int      `yaml:"max_connections"`
	FirstLegLimit  int      `yaml:"first_leg_limit"`
	SecondLegLimit int      `yaml:"second_leg_limit"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

func (s SearchConfig) Timeout() time.Duration {
	return secondsOr(s.TimeoutSeconds, 10)
}

type LoyaltyConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
	RPS            float64 `yaml:"rps"`
	Burst          int     `yaml:"burst"`
}

func (l LoyaltyConfig) Timeout() time.Duration {
	return secondsOr(l.TimeoutSeconds, 5)
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

func secondsOr(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}
