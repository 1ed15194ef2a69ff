package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/campus-events-crawler/internal/publisher"
)

func TestNewMessage(t *testing.T) {
	t.Parallel()

	summary := publisher.RunSummary{
		RunDate:     time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC),
		Status:      "success",
		EventsAdded: 7,
	}
	msg, err := newMessage(summary)
	require.NoError(t, err)
	assert.Equal(t, "success", msg.Attributes["status"])
	assert.Equal(t, "2025-03-01", msg.Attributes["run_date"])

	var decoded publisher.RunSummary
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, 7, decoded.EventsAdded)
}

func TestPublishWithoutClient(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Publish(context.Background(), publisher.RunSummary{})
	require.Error(t, err)
}
