package main

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	ServiceConfig struct {
		Environment string `env:"CRASHREPORT_ENVIRONMENT" env-default:"development"`

		SentryDSN string `env:"SENTRY_DSN"`
		LogLevel  string `env:"CRASHREPORT_LOG_LEVEL"`

		// ReportsBucket is a bucket URL: gs://name, badger:///dir or any
		// scheme gocloud.dev/blob understands.
		ReportsBucket string `env:"CRASHREPORT_BUCKET"`

		NoticesKafkaBrokers []string `env:"CRASHREPORT_KAFKA_BROKERS" env-separator:","`
		NoticesKafkaTopic   string   `env:"CRASHREPORT_KAFKA_TOPIC"`
	}

	environmentName struct {
		Environment string `env:"CRASHREPORT_ENVIRONMENT" env-default:"development"`
	}
)

var (
	serviceConfigs = map[string]ServiceConfig{
		"production": {
			LogLevel:            "info",
			ReportsBucket:       "gs://bitdrift-crash-reports",
			NoticesKafkaBrokers: []string{"kafka-crash-reports.service.us-central1.consul:9092"},
			NoticesKafkaTopic:   "archived-crash-reports",
		},
		"development": {
			LogLevel:          "debug",
			ReportsBucket:     "badger:///tmp/crashreport-archive",
			NoticesKafkaTopic: "archived-crash-reports",
		},
	}
)

// loadConfig starts from the defaults of the selected environment and
// applies any variable set in the process environment on top.
func loadConfig() (ServiceConfig, error) {
	var name environmentName
	if err := cleanenv.ReadEnv(&name); err != nil {
		return ServiceConfig{}, fmt.Errorf("could not read the environment name: %w", err)
	}
	config, exists := serviceConfigs[name.Environment]
	if !exists {
		return ServiceConfig{}, fmt.Errorf("service config for environment %v does not exist", name.Environment)
	}
	config.Environment = name.Environment
	config.NoticesKafkaBrokers = append([]string(nil), config.NoticesKafkaBrokers...)
	if err := cleanenv.ReadEnv(&config); err != nil {
		return ServiceConfig{}, fmt.Errorf("could not read the configuration: %w", err)
	}
	return config, nil
}
