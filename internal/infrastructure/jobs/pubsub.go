package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	"ProfInsight/internal/config"
	"ProfInsight/internal/ports"
)

// jobMessage is the payload consumed by queue-driven scrapers.
type jobMessage struct {
	JobID     string    `json:"jobId"`
	Source    string    `json:"source"`
	Professor string    `json:"professor"`
	QueuedAt  time.Time `json:"queuedAt"`
}

// PubSubLauncher publishes collection jobs to a Pub/Sub topic.
type PubSubLauncher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

var _ ports.JobLauncher = (*PubSubLauncher)(nil)

// NewPubSubLauncher constructs a Pub/Sub backed launcher.
func NewPubSubLauncher(topic *pubsub.Topic) (*PubSubLauncher, error) {
	if topic == nil {
		return nil, errors.New("pubsub launcher: topic is required")
	}
	return &PubSubLauncher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// Name identifies the launcher inside the registry.
func (p *PubSubLauncher) Name() string {
	return config.LauncherPubSub
}

// Launch enqueues the job and waits only for the broker to accept it.
func (p *PubSubLauncher) Launch(ctx context.Context, job ports.Job) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub launcher: not initialised")
	}

	data, err := p.marshal(jobMessage{
		JobID:     job.ID,
		Source:    job.Source,
		Professor: job.Professor,
		QueuedAt:  job.QueuedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal collection job: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "jobId", job.ID)
	setAttr(attrs, "source", job.Source)
	setAttr(attrs, "idempotencyKey", job.IdempotencyKey)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish collection job: %w", err)
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
