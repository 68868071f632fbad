package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env       string          `yaml:"env"`
	API       APIConfig       `yaml:"api"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Log       LogConfig       `yaml:"log"`
	Likes     LikesConfig     `yaml:"likes"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Messages  MessagesConfig  `yaml:"messages"`
	Notices   NoticesConfig   `yaml:"notices"`
	Session   SessionConfig   `yaml:"session"`
	Location  LocationConfig  `yaml:"location"`
	Stub      StubConfig      `yaml:"stub"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type RealtimeConfig struct {
	URL              string        `yaml:"url"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type LikesConfig struct {
	BatchSize        int    `yaml:"batch_size"`
	PlaceholderPhoto string `yaml:"placeholder_photo"`
}

type DiscoveryConfig struct {
	FetchSize int `yaml:"fetch_size"`
	LowWater  int `yaml:"low_water"`
}

type MessagesConfig struct {
	PageSize int `yaml:"page_size"`
}

type NoticesConfig struct {
	Buffer int `yaml:"buffer"`
}

type SessionConfig struct {
	StorePath string `yaml:"store_path"`
}

type LocationConfig struct {
	Cities []CityConfig `yaml:"cities"`
}

type CityConfig struct {
	ID   string  `yaml:"id"`
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

type StubConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	SeedLikes    int           `yaml:"seed_likes"`
}

func Default() Config {
	return Config{
		Env: "dev",
		API: APIConfig{
			BaseURL: "http://localhost:8080/api/v1",
			Timeout: 15 * time.Second,
		},
		Realtime: RealtimeConfig{
			URL:              "ws://localhost:8080/ws",
			HandshakeTimeout: 10 * time.Second,
			PingInterval:     25 * time.Second,
		},
		Log: LogConfig{Level: "debug"},
		Likes: LikesConfig{
			BatchSize:        10,
			PlaceholderPhoto: "https://cdn.hantibink.app/static/placeholder-profile.png",
		},
		Discovery: DiscoveryConfig{
			FetchSize: 20,
			LowWater:  5,
		},
		Messages: MessagesConfig{
			PageSize: 30,
		},
		Notices: NoticesConfig{
			Buffer: 16,
		},
		Session: SessionConfig{
			StorePath: "session.json",
		},
		Location: LocationConfig{
			Cities: []CityConfig{
				{ID: "yerevan", Name: "Yerevan", Lat: 40.1792, Lon: 44.4991},
				{ID: "gyumri", Name: "Gyumri", Lat: 40.7894, Lon: 43.8475},
				{ID: "vanadzor", Name: "Vanadzor", Lat: 40.8128, Lon: 44.4883},
				{ID: "los-angeles", Name: "Los Angeles", Lat: 34.0549, Lon: -118.2426},
			},
		},
		Stub: StubConfig{
			Addr:         ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
			SeedLikes:    25,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadFromYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal config yaml: %w", err)
	}

	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = v
	}

	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if err := overrideDuration("API_TIMEOUT", &cfg.API.Timeout); err != nil {
		return err
	}

	if v := os.Getenv("REALTIME_URL"); v != "" {
		cfg.Realtime.URL = v
	}
	if err := overrideDuration("REALTIME_HANDSHAKE_TIMEOUT", &cfg.Realtime.HandshakeTimeout); err != nil {
		return err
	}
	if err := overrideDuration("REALTIME_PING_INTERVAL", &cfg.Realtime.PingInterval); err != nil {
		return err
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if err := overrideInt("LIKES_BATCH_SIZE", &cfg.Likes.BatchSize); err != nil {
		return err
	}
	if v := os.Getenv("LIKES_PLACEHOLDER_PHOTO"); v != "" {
		cfg.Likes.PlaceholderPhoto = v
	}

	if err := overrideInt("DISCOVERY_FETCH_SIZE", &cfg.Discovery.FetchSize); err != nil {
		return err
	}
	if err := overrideInt("DISCOVERY_LOW_WATER", &cfg.Discovery.LowWater); err != nil {
		return err
	}

	if err := overrideInt("MESSAGES_PAGE_SIZE", &cfg.Messages.PageSize); err != nil {
		return err
	}

	if err := overrideInt("NOTICES_BUFFER", &cfg.Notices.Buffer); err != nil {
		return err
	}

	if v := os.Getenv("SESSION_STORE_PATH"); v != "" {
		cfg.Session.StorePath = v
	}

	if v := os.Getenv("STUB_ADDR"); v != "" {
		cfg.Stub.Addr = v
	}
	if err := overrideDuration("STUB_READ_TIMEOUT", &cfg.Stub.ReadTimeout); err != nil {
		return err
	}
	if err := overrideDuration("STUB_WRITE_TIMEOUT", &cfg.Stub.WriteTimeout); err != nil {
		return err
	}
	if err := overrideDuration("STUB_IDLE_TIMEOUT", &cfg.Stub.IdleTimeout); err != nil {
		return err
	}
	if err := overrideInt("STUB_SEED_LIKES", &cfg.Stub.SeedLikes); err != nil {
		return err
	}

	return nil
}

func overrideDuration(key string, target *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s duration: %w", key, err)
	}
	*target = d
	return nil
}

func overrideInt(key string, target *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s int: %w", key, err)
	}
	*target = n
	return nil
}
