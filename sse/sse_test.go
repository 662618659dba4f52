package sse

import (
	"testing"
	"time"

	"fintrack/api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(userID string, typ models.EventType) models.Event {
	return models.Event{Type: typ, UserID: userID, OccurredAt: time.Now()}
}

func TestBrokerDeliversOnlyToOwner(t *testing.T) {
	b := NewBroker(4)
	alice, cancelAlice := b.Subscribe("alice")
	defer cancelAlice()
	bob, cancelBob := b.Subscribe("bob")
	defer cancelBob()

	b.Publish(event("alice", models.EventGoalCreated))

	select {
	case got := <-alice.Events:
		assert.Equal(t, models.EventGoalCreated, got.Type)
	default:
		t.Fatal("alice did not receive her event")
	}
	assert.Empty(t, bob.Events)
}

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker(4)
	first, cancel1 := b.Subscribe("alice")
	defer cancel1()
	second, cancel2 := b.Subscribe("alice")
	defer cancel2()
	assert.Equal(t, 2, b.Subscribers("alice"))

	b.Publish(event("alice", models.EventChatReplied))
	assert.Len(t, first.Events, 1)
	assert.Len(t, second.Events, 1)
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := NewBroker(1)
	stream, cancel := b.Subscribe("alice")
	defer cancel()

	b.Publish(event("alice", models.EventGoalCreated))
	b.Publish(event("alice", models.EventGoalUpdated))

	require.Len(t, stream.Events, 1)
	assert.Equal(t, models.EventGoalCreated, (<-stream.Events).Type)
}

func TestBrokerCancelClosesStream(t *testing.T) {
	b := NewBroker(1)
	stream, cancel := b.Subscribe("alice")
	cancel()
	cancel()

	_, ok := <-stream.Events
	assert.False(t, ok)
	assert.Zero(t, b.Subscribers("alice"))

	// Publishing with no subscribers is a no-op.
	b.Publish(event("alice", models.EventGoalCreated))
}

func TestBrokerClose(t *testing.T) {
	b := NewBroker(1)
	stream, cancel := b.Subscribe("alice")
	b.Close()
	cancel()

	_, ok := <-stream.Events
	assert.False(t, ok)

	late, _ := b.Subscribe("alice")
	_, ok = <-late.Events
	assert.False(t, ok)
}
