package main

import (
	"os"
	"testing"

	"github.com/bitdrift/crashreport/internal/testutil"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    ServiceConfig
		wantErr bool
	}{
		{
			name: "development defaults",
			want: ServiceConfig{
				Environment:       "development",
				LogLevel:          "debug",
				ReportsBucket:     "badger:///tmp/crashreport-archive",
				NoticesKafkaTopic: "archived-crash-reports",
			},
		},
		{
			name: "production with overrides",
			env: map[string]string{
				"CRASHREPORT_ENVIRONMENT":   "production",
				"CRASHREPORT_KAFKA_BROKERS": "kafka-1:9092,kafka-2:9092",
				"SENTRY_DSN":                "https://key@sentry.example.com/1",
			},
			want: ServiceConfig{
				Environment:         "production",
				SentryDSN:           "https://key@sentry.example.com/1",
				LogLevel:            "info",
				ReportsBucket:       "gs://bitdrift-crash-reports",
				NoticesKafkaBrokers: []string{"kafka-1:9092", "kafka-2:9092"},
				NoticesKafkaTopic:   "archived-crash-reports",
			},
		},
		{
			name: "bucket override",
			env:  map[string]string{"CRASHREPORT_BUCKET": "mem://"},
			want: ServiceConfig{
				Environment:       "development",
				LogLevel:          "debug",
				ReportsBucket:     "mem://",
				NoticesKafkaTopic: "archived-crash-reports",
			},
		},
		{
			name:    "unknown environment",
			env:     map[string]string{"CRASHREPORT_ENVIRONMENT": "staging"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{
				"CRASHREPORT_ENVIRONMENT",
				"CRASHREPORT_KAFKA_BROKERS",
				"CRASHREPORT_KAFKA_TOPIC",
				"CRASHREPORT_BUCKET",
				"CRASHREPORT_LOG_LEVEL",
				"SENTRY_DSN",
			} {
				value, ok := tt.env[key]
				t.Setenv(key, value)
				if !ok {
					os.Unsetenv(key)
				}
			}
			got, err := loadConfig()
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr {
				return
			}
			if diff := testutil.Diff(got, tt.want); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestProductionDefaultsAreNotShared(t *testing.T) {
	t.Setenv("CRASHREPORT_ENVIRONMENT", "production")
	t.Setenv("CRASHREPORT_KAFKA_BROKERS", "other:9092")
	if _, err := loadConfig(); err != nil {
		t.Fatalf("we should be able to load the config: %v", err)
	}
	if got := serviceConfigs["production"].NoticesKafkaBrokers; len(got) != 1 || got[0] == "other:9092" {
		t.Fatalf("loading the config should not modify the defaults, got %v", got)
	}
}
