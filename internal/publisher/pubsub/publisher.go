// Package pubsub publishes run summaries to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/JakeFAU/campus-events-crawler/internal/publisher"
)

var _ publisher.Publisher = (*Publisher)(nil)

// Publisher wraps a Pub/Sub publisher client.
type Publisher struct {
	publisher *pubsub.Publisher
}

// New creates a Publisher for the provided topic publisher.
func New(topic *pubsub.Publisher) *Publisher {
	return &Publisher{publisher: topic}
}

// Open connects to projectID and returns a Publisher for topic along with a close func.
func Open(ctx context.Context, projectID, topic string) (*Publisher, func() error, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("create pubsub client: %w", err)
	}
	pub := client.Publisher(topic)
	closeFn := func() error {
		pub.Stop()
		return client.Close()
	}
	return New(pub), closeFn, nil
}

// Publish marshals the summary to JSON and publishes it with filterable attributes.
func (p *Publisher) Publish(ctx context.Context, summary publisher.RunSummary) (string, error) {
	if p.publisher == nil {
		return "", fmt.Errorf("pubsub publisher is not configured")
	}
	msg, err := newMessage(summary)
	if err != nil {
		return "", err
	}
	result := p.publisher.Publish(ctx, msg)
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

func newMessage(summary publisher.RunSummary) (*pubsub.Message, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return &pubsub.Message{Data: data, Attributes: summary.Attributes()}, nil
}
