package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/events"
)

type fakeResolver struct {
	mu       sync.Mutex
	channels map[string]string
	err      error
	calls    int
}

func (f *fakeResolver) ChannelForContent(_ context.Context, contentID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	ch, ok := f.channels[contentID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return ch, nil
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestPublisher_PublishesToContainerChannel(t *testing.T) {
	t.Parallel()

	_, client := setupRedis(t)
	resolver := &fakeResolver{channels: map[string]string{"content-1": "general"}}
	pub := events.NewPublisher(client, resolver, events.Config{}, infralogger.NewNop())

	ctx := context.Background()
	sub := client.Subscribe(ctx, "links:container:general")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	md := &domain.Metadata{
		Title: "Album",
		Embed: &domain.Embed{Provider: "bandcamp", EmbedURL: "https://bandcamp.com/EmbeddedPlayer/album=1", Height: 470, Kind: domain.KindAlbum},
	}
	require.NoError(t, pub.Publish(ctx, "content-1", "link-1", md))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "links:container:general", msg.Channel)

		var event domain.MetadataUpdatedEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, domain.EventTypeLinkMetadataUpdated, event.Type)
		assert.Equal(t, "content-1", event.Data.ContentID)
		assert.Equal(t, "link-1", event.Data.LinkID)
		assert.Equal(t, md, event.Data.Metadata)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestPublisher_ChannelLookupFailureSkips(t *testing.T) {
	t.Parallel()

	_, client := setupRedis(t)
	pub := events.NewPublisher(client, &fakeResolver{}, events.Config{}, infralogger.NewNop())

	err := pub.Publish(context.Background(), "deleted", "link-1", &domain.Metadata{})
	require.ErrorIs(t, err, events.ErrChannelUnavailable)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPublisher_RedisDown(t *testing.T) {
	t.Parallel()

	mr, client := setupRedis(t)
	resolver := &fakeResolver{channels: map[string]string{"content-1": "general"}}
	pub := events.NewPublisher(client, resolver, events.Config{PublishTimeout: 200 * time.Millisecond}, infralogger.NewNop())
	mr.Close()

	err := pub.Publish(context.Background(), "content-1", "link-1", &domain.Metadata{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, events.ErrChannelUnavailable)
}

func TestPublisher_NilIsNoop(t *testing.T) {
	t.Parallel()

	pub := events.NewPublisher(nil, &fakeResolver{}, events.Config{}, infralogger.NewNop())
	assert.Nil(t, pub)
	assert.NoError(t, pub.Publish(context.Background(), "content-1", "link-1", &domain.Metadata{}))
}

func TestPublisher_CustomPrefix(t *testing.T) {
	t.Parallel()

	_, client := setupRedis(t)
	pub := events.NewPublisher(client, &fakeResolver{}, events.Config{ChannelPrefix: "rooms:"}, infralogger.NewNop())
	assert.Equal(t, "rooms:abc", pub.Channel("abc"))
}

func TestConfig_SetDefaults(t *testing.T) {
	t.Parallel()

	var cfg events.Config
	cfg.SetDefaults()
	assert.Equal(t, "links:container:", cfg.ChannelPrefix)
	assert.Equal(t, 2*time.Second, cfg.PublishTimeout)
	assert.True(t, cfg.CacheEnabled())

	disabled := events.Config{ChannelCacheTTL: -1}
	disabled.SetDefaults()
	assert.False(t, disabled.CacheEnabled())
}

func TestCachedChannelResolver(t *testing.T) {
	t.Parallel()

	mr, client := setupRedis(t)
	inner := &fakeResolver{channels: map[string]string{"content-1": "general"}}
	cached := events.NewCachedChannelResolver(inner, client, "test", time.Minute, infralogger.NewNop())
	ctx := context.Background()

	for range 3 {
		ch, err := cached.ChannelForContent(ctx, "content-1")
		require.NoError(t, err)
		assert.Equal(t, "general", ch)
	}
	assert.Equal(t, 1, inner.callCount())

	mr.FastForward(2 * time.Minute)
	_, err := cached.ChannelForContent(ctx, "content-1")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.callCount())
}

func TestCachedChannelResolver_DoesNotCacheMisses(t *testing.T) {
	t.Parallel()

	_, client := setupRedis(t)
	inner := &fakeResolver{channels: map[string]string{}}
	cached := events.NewCachedChannelResolver(inner, client, "test", time.Minute, infralogger.NewNop())

	for range 2 {
		_, err := cached.ChannelForContent(context.Background(), "gone")
		require.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, 2, inner.callCount())
}

func TestCachedChannelResolver_CacheDownFallsThrough(t *testing.T) {
	t.Parallel()

	mr, client := setupRedis(t)
	inner := &fakeResolver{channels: map[string]string{"content-1": "general"}}
	cached := events.NewCachedChannelResolver(inner, client, "test", time.Minute, infralogger.NewNop())
	mr.Close()

	ch, err := cached.ChannelForContent(context.Background(), "content-1")
	require.NoError(t, err)
	assert.Equal(t, "general", ch)
}

func TestCachedChannelResolver_PropagatesLookupError(t *testing.T) {
	t.Parallel()

	_, client := setupRedis(t)
	boom := errors.New("db down")
	cached := events.NewCachedChannelResolver(&fakeResolver{err: boom}, client, "test", time.Minute, infralogger.NewNop())

	_, err := cached.ChannelForContent(context.Background(), "content-1")
	assert.ErrorIs(t, err, boom)
}

func TestCachedChannelResolver_KeysFollowPrefix(t *testing.T) {
	t.Parallel()

	mr, client := setupRedis(t)
	ctx := context.Background()

	blue := events.NewCachedChannelResolver(
		&fakeResolver{channels: map[string]string{"content-1": "blue-room"}},
		client, "blue", time.Minute, infralogger.NewNop())
	green := events.NewCachedChannelResolver(
		&fakeResolver{channels: map[string]string{"content-1": "green-room"}},
		client, "green", time.Minute, infralogger.NewNop())

	ch, err := blue.ChannelForContent(ctx, "content-1")
	require.NoError(t, err)
	assert.Equal(t, "blue-room", ch)

	ch, err = green.ChannelForContent(ctx, "content-1")
	require.NoError(t, err)
	assert.Equal(t, "green-room", ch, "a second deployment does not read the first one's entry")

	got, err := mr.Get("blue:channel:content-1")
	require.NoError(t, err)
	assert.Equal(t, "blue-room", got)
	assert.True(t, mr.Exists("green:channel:content-1"))
}
