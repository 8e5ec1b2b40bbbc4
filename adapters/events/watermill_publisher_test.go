package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/walletauth/adapters/events"
	"github.com/layer-3/walletauth/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, messages <-chan *message.Message) events.AuthEvent {
	t.Helper()
	select {
	case msg := <-messages:
		msg.Ack()
		var event events.AuthEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, event.Type, msg.Metadata.Get("type"))
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return events.AuthEvent{}
	}
}

func TestWatermillPublisher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, "auth")
	require.NoError(t, err)

	clock := testutil.NewClock()
	publisher := events.NewWatermillPublisher(pubSub, "auth", clock)

	require.NoError(t, publisher.PublishLogin(ctx, "0xabc", "ref-1"))
	event := receive(t, messages)
	assert.Equal(t, events.EventLogin, event.Type)
	assert.Equal(t, "0xabc", event.Identity)
	assert.Equal(t, "ref-1", event.Session)
	assert.True(t, event.At.Equal(clock.Now()))

	require.NoError(t, publisher.PublishLogout(ctx, "0xabc", "ref-1"))
	event = receive(t, messages)
	assert.Equal(t, events.EventLogout, event.Type)
}

func TestWatermillPublisher_DefaultTopic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, events.DefaultTopic)
	require.NoError(t, err)

	publisher := events.NewWatermillPublisher(pubSub, "", testutil.NewClock())
	require.NoError(t, publisher.PublishLogout(ctx, "0xabc", "ref"))
	assert.Equal(t, events.EventLogout, receive(t, messages).Type)
}

func TestWatermillPublisher_Closed(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	require.NoError(t, pubSub.Close())

	publisher := events.NewWatermillPublisher(pubSub, "auth", testutil.NewClock())
	assert.Error(t, publisher.PublishLogin(context.Background(), "0xabc", "ref"))
}
