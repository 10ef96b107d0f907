package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toppicks/bestseller-scraper/internal/ingest"
)

type fakeRedis struct {
	added []*redis.XAddArgs
	fail  error
}

func (f *fakeRedis) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if f.fail != nil {
		cmd.SetErr(f.fail)
		return cmd
	}
	f.added = append(f.added, args)
	cmd.SetVal("1-0")
	return cmd
}

func (f *fakeRedis) Close() error { return nil }

func testIngestPayload() ingest.Payload {
	return ingest.Payload{
		Category: ingest.CategoryPayload{FullSlug: "books/fiction"},
		Product:  ingest.ProductPayload{ASIN: "B08N5WRWNW"},
	}
}

func TestPublishSubmitted(t *testing.T) {
	fake := &fakeRedis{}
	publisher := NewPublisher(fake, slog.Default())

	err := publisher.PublishSubmitted(context.Background(), "run-1", testIngestPayload())
	require.NoError(t, err)
	require.Len(t, fake.added, 1)

	args := fake.added[0]
	assert.Equal(t, SubmissionStream, args.Stream)
	assert.Equal(t, string(EventTypeBestsellerSubmitted), args.Values.(map[string]interface{})["event_type"])
	assert.Equal(t, "B08N5WRWNW", args.Values.(map[string]interface{})["aggregate_id"])

	var event SubmittedPayload
	data := args.Values.(map[string]interface{})["data"].(string)
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, "run-1", event.RunID)
	assert.Equal(t, "books/fiction", event.Payload.Category.FullSlug)
	assert.NotEmpty(t, event.EventID)
}

func TestNilPublisherIsNoOp(t *testing.T) {
	var publisher *Publisher
	assert.NoError(t, publisher.PublishSubmitted(context.Background(), "run-1", testIngestPayload()))
	assert.NoError(t, publisher.Close())
}
