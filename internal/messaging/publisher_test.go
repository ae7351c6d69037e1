package messaging_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/admission-go/internal/analytics"
	"github.com/serroba/admission-go/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

type mockPublisher struct {
	messages   []*message.Message
	topic      string
	publishErr error
	closeErr   error
}

func (m *mockPublisher) Publish(topic string, msgs ...*message.Message) error {
	if m.publishErr != nil {
		return m.publishErr
	}

	m.topic = topic
	m.messages = append(m.messages, msgs...)

	return nil
}

func (m *mockPublisher) Close() error {
	return m.closeErr
}

func TestNewPublishFunc(t *testing.T) {
	t.Run("publishes denied event on its topic", func(t *testing.T) {
		mock := &mockPublisher{}
		publish := messaging.NewPublishFunc[analytics.DeniedEvent](mock, analytics.TopicAdmissionDenied)

		err := publish(context.Background(), &analytics.DeniedEvent{ID: "123", Key: "ip:10.0.0.1"})

		require.NoError(t, err)
		assert.Equal(t, analytics.TopicAdmissionDenied, mock.topic)
		require.Len(t, mock.messages, 1)
		assert.Contains(t, string(mock.messages[0].Payload), `"id":"123"`)
		assert.NotEmpty(t, mock.messages[0].UUID)
		assert.NotEmpty(t, mock.messages[0].Metadata.Get(messaging.MetadataPublishedAt))
	})

	t.Run("attaches the caller context", func(t *testing.T) {
		mock := &mockPublisher{}
		publish := messaging.NewPublishFunc[analytics.DeniedEvent](mock, analytics.TopicAdmissionDenied)
		ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")

		require.NoError(t, publish(ctx, &analytics.DeniedEvent{ID: "1"}))

		assert.Equal(t, "req-1", mock.messages[0].Context().Value(ctxKey{}))
	})

	t.Run("returns error when publish fails", func(t *testing.T) {
		mock := &mockPublisher{publishErr: errors.New("publish error")}
		publish := messaging.NewPublishFunc[analytics.DeniedEvent](mock, analytics.TopicAdmissionDenied)

		err := publish(context.Background(), &analytics.DeniedEvent{ID: "123"})

		assert.Error(t, err)
	})
}

func TestDiscard(t *testing.T) {
	publish := messaging.Discard[analytics.DeniedEvent]()

	assert.NoError(t, publish(context.Background(), &analytics.DeniedEvent{ID: "1"}))
}

func TestPublisherGroup(t *testing.T) {
	t.Run("returns underlying publisher", func(t *testing.T) {
		mock := &mockPublisher{}
		group := messaging.NewPublisherGroup(mock)

		assert.Equal(t, mock, group.Publisher())
	})

	t.Run("shuts down successfully", func(t *testing.T) {
		mock := &mockPublisher{}
		group := messaging.NewPublisherGroup(mock)

		err := group.Shutdown()

		require.NoError(t, err)
	})

	t.Run("returns error when close fails", func(t *testing.T) {
		mock := &mockPublisher{closeErr: errors.New("close error")}
		group := messaging.NewPublisherGroup(mock)

		err := group.Shutdown()

		assert.Error(t, err)
	})
}
