package config

import (
	"fmt"

	"github.com/go-playground/validator"
	"github.com/spf13/viper"
)

var Validate = validator.New()

type Config struct {
	ServerPort     int    `mapstructure:"SERVER_PORT"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	BaseURL        string `mapstructure:"BASE_URL"`
	SessionLife    int    `mapstructure:"SESSION_LIFETIME"`
	SecureCookies  bool   `mapstructure:"SECURE_COOKIES"`
	MailgunAPIKey  string `mapstructure:"MAILGUN_API_KEY"`
	MailgunDomain  string `mapstructure:"MAILGUN_DOMAIN"`
	MailgunAPIBase string `mapstructure:"MAILGUN_API_BASE"`
	MailFrom       string `mapstructure:"MAIL_FROM"`
}

func Load() (*Config, error) {
	viper.SetDefault("SERVER_PORT", 3_000)
	viper.SetDefault("DATABASE_URL", "file:clubhouse.db")
	viper.SetDefault("BASE_URL", "http://localhost:3000")
	// Session idle timeout in seconds.
	viper.SetDefault("SESSION_LIFETIME", 86_400)
	viper.SetDefault("SECURE_COOKIES", false)
	viper.SetDefault("MAIL_FROM", "no-reply@clubhouse.example")

	viper.SetEnvPrefix("CH")
	viper.AutomaticEnv()

	viper.BindEnv("MAILGUN_API_KEY")
	viper.BindEnv("MAILGUN_DOMAIN")
	viper.BindEnv("MAILGUN_API_BASE")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/clubhouse/")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
