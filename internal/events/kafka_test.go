package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPublisher_PublishesEventKeyedByRoom(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewKafkaConfig())
	roomID := uuid.New()

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, roomID.String(), string(key))
		assert.Equal(t, "room-events", msg.Topic)

		raw, err := msg.Value.Encode()
		require.NoError(t, err)
		var got RoomEvent
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, RoomJoined, got.Type)
		assert.Equal(t, uint(42), got.UserID)
		return nil
	})

	p := NewKafkaPublisherWithProducer(producer, "room-events")
	p.Publish(context.Background(), NewRoomEvent(RoomJoined, roomID, 42))

	require.NoError(t, p.Close())
}

func TestKafkaPublisher_SendFailureIsSwallowed(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewKafkaConfig())
	producer.ExpectSendMessageAndFail(errors.New("broker down"))

	p := NewKafkaPublisherWithProducer(producer, "room-events")
	assert.NotPanics(t, func() {
		p.Publish(context.Background(), NewRoomEvent(RoomDeleted, uuid.New(), 1))
	})
	require.NoError(t, p.Close())
}

type recordingPublisher struct {
	got []RoomEvent
}

func (r *recordingPublisher) Publish(_ context.Context, e RoomEvent) {
	r.got = append(r.got, e)
}

func TestMulti_FansOutInOrder(t *testing.T) {
	a, b := &recordingPublisher{}, &recordingPublisher{}
	m := Multi{a, NewNopPublisher(), b}

	e := NewRoomEvent(RoomCreated, uuid.New(), 3)
	m.Publish(context.Background(), e)

	assert.Equal(t, []RoomEvent{e}, a.got)
	assert.Equal(t, []RoomEvent{e}, b.got)
}
