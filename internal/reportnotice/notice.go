// Package reportnotice announces archived crash reports on Kafka.
package reportnotice

import (
	"context"
	"fmt"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/bitdrift/crashreport/internal/reportreader"
)

type (
	// Notice is the message sent to Kafka once a report is archived.
	Notice struct {
		ObjectName        string `json:"object_name"`
		BundleIdentifier  string `json:"bundle_identifier,omitempty"`
		AppVersion        string `json:"app_version,omitempty"`
		AppBuildVersion   string `json:"app_build_version,omitempty"`
		OSVersion         string `json:"os_version,omitempty"`
		PID               uint64 `json:"pid"`
		CrashedAt         int64  `json:"crashed_at"`
		ExceptionType     uint64 `json:"exception_type"`
		ExceptionCode     uint64 `json:"exception_code"`
		Signal            uint64 `json:"signal"`
		ThreadCount       int    `json:"thread_count"`
		CrashedThreadName string `json:"crashed_thread_name,omitempty"`
		Partial           bool   `json:"partial"`
		Received          int64  `json:"received"`
	}

	// MessageWriter is the part of *kafka.Writer a Publisher needs.
	MessageWriter interface {
		WriteMessages(ctx context.Context, msgs ...kafka.Message) error
		Close() error
	}

	// Publisher sends notices to a single topic.
	Publisher struct {
		Writer MessageWriter
		Topic  string
	}
)

// BuildNotice describes the report archived under objectName. Missing
// metadata fields are left at their zero value.
func BuildNotice(objectName string, report reportreader.Report, result reportreader.Result) Notice {
	n := Notice{
		ObjectName: objectName,
		Partial:    result == reportreader.PartialSuccess,
		Received:   time.Now().Unix(),
	}
	if m, ok := report["diagnosticMetaData"].(map[string]any); ok {
		n.BundleIdentifier, _ = m["bundleIdentifier"].(string)
		n.AppVersion, _ = m["appVersion"].(string)
		n.AppBuildVersion, _ = m["appBuildVersion"].(string)
		n.OSVersion, _ = m["osVersion"].(string)
		n.PID = unsigned(m["pid"])
		n.CrashedAt = int64(unsigned(m["crashedAt"]))
		n.ExceptionType = unsigned(m["exceptionType"])
		n.ExceptionCode = unsigned(m["exceptionCode"])
		n.Signal = unsigned(m["signal"])
	}
	threads, _ := report["threads"].([]any)
	n.ThreadCount = len(threads)
	for _, t := range threads {
		thread, ok := t.(map[string]any)
		if !ok {
			continue
		}
		if crashed, _ := thread["crashed"].(bool); crashed {
			n.CrashedThreadName, _ = thread["name"].(string)
			break
		}
	}
	return n
}

// GenerateKafkaMessage encodes a notice. Notices of the same bundle share a
// key so they land on the same partition.
func GenerateKafkaMessage(n Notice) (kafka.Message, error) {
	b, err := gojson.Marshal(n)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("could not marshal notice: %w", err)
	}
	return kafka.Message{
		Key:   []byte(n.BundleIdentifier),
		Value: b,
	}, nil
}

// NewPublisher returns a Publisher writing to topic on brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		Writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     kafka.CRC32Balancer{},
			BatchSize:    100,
			Compression:  kafka.Lz4,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Topic: topic,
	}
}

// Publish sends a notice and waits for the broker to acknowledge it.
func (p *Publisher) Publish(ctx context.Context, n Notice) error {
	msg, err := GenerateKafkaMessage(n)
	if err != nil {
		return err
	}
	msg.Topic = p.Topic
	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("could not publish notice for %s: %w", n.ObjectName, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.Writer.Close()
}

func unsigned(v any) uint64 {
	switch n := v.(type) {
	case int64:
		if n < 0 {
			return 0
		}
		return uint64(n)
	case uint64:
		return n
	}
	return 0
}
