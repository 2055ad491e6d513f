package realtime

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/leadcrm/pkg/logging"
)

type countingObserver struct {
	mu                    sync.Mutex
	published             map[string]int
	dropped, joined, left int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{published: map[string]int{}}
}

func (o *countingObserver) ObservePublished(event string) {
	o.mu.Lock()
	o.published[event]++
	o.mu.Unlock()
}

func (o *countingObserver) ObserveDropped() {
	o.mu.Lock()
	o.dropped++
	o.mu.Unlock()
}

func (o *countingObserver) SessionJoined() {
	o.mu.Lock()
	o.joined++
	o.mu.Unlock()
}

func (o *countingObserver) SessionLeft() {
	o.mu.Lock()
	o.left++
	o.mu.Unlock()
}

func quietLogger() *logging.Logger {
	return logging.NewWithWriter("error", io.Discard)
}

func TestHubPublishReachesEveryMember(t *testing.T) {
	obs := newCountingObserver()
	hub := NewHub(obs, quietLogger())
	a := hub.Join(LeadsChannel, 4)
	b := hub.Join(LeadsChannel, 4)
	other := hub.Join("elsewhere", 4)

	ev, err := NewEvent("lead-created", map[string]string{"id": "l1"})
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Publish(LeadsChannel, ev, nil))

	assert.Equal(t, ev, <-a.Events())
	assert.Equal(t, ev, <-b.Events())
	assert.Len(t, other.Events(), 0)
	assert.Equal(t, 2, obs.published["lead-created"])
	assert.Equal(t, 2, hub.Sessions(LeadsChannel))
}

func TestHubPublishExcludesSender(t *testing.T) {
	hub := NewHub(nil, quietLogger())
	sender := hub.Join(LeadsChannel, 4)
	peer := hub.Join(LeadsChannel, 4)

	assert.Equal(t, 1, hub.Publish(LeadsChannel, Event{Name: "lead-updated", Data: []byte(`{}`)}, sender))
	assert.Len(t, sender.Events(), 0)
	assert.Len(t, peer.Events(), 1)
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	obs := newCountingObserver()
	hub := NewHub(obs, quietLogger())
	slow := hub.Join(LeadsChannel, 1)

	ev := Event{Name: "lead-updated", Data: []byte(`{}`)}
	assert.Equal(t, 1, hub.Publish(LeadsChannel, ev, nil))
	assert.Equal(t, 0, hub.Publish(LeadsChannel, ev, nil), "publish must not block on a full buffer")
	assert.Equal(t, 1, obs.dropped)
	assert.Len(t, slow.Events(), 1)
}

func TestHubLeaveClosesStream(t *testing.T) {
	obs := newCountingObserver()
	hub := NewHub(obs, quietLogger())
	sub := hub.Join(LeadsChannel, 1)

	hub.Leave(sub)
	hub.Leave(sub)

	_, open := <-sub.Events()
	assert.False(t, open)
	assert.Equal(t, 0, hub.Sessions(LeadsChannel))
	assert.Equal(t, 1, obs.joined)
	assert.Equal(t, 1, obs.left)
	assert.Equal(t, 0, hub.Publish(LeadsChannel, Event{Name: "lead-deleted"}, nil))
}

type recordingRelay struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingRelay) Forward(_ context.Context, _ string, ev Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func TestLeadPublisherBroadcastsThroughRelay(t *testing.T) {
	hub := NewHub(nil, quietLogger())
	relay := &recordingRelay{}
	hub.SetRelay(relay)
	sub := hub.Join(LeadsChannel, 2)

	pub := NewLeadPublisher(hub)
	require.NoError(t, pub.Publish(context.Background(), "lead-deleted", map[string]string{"id": "l9"}))

	got := <-sub.Events()
	assert.Equal(t, "lead-deleted", got.Name)
	assert.JSONEq(t, `{"id":"l9"}`, string(got.Data))
	require.Len(t, relay.events, 1)
	assert.Equal(t, got, relay.events[0])
}

func TestLeadPublisherRejectsUnmarshalablePayload(t *testing.T) {
	pub := NewLeadPublisher(NewHub(nil, quietLogger()))
	err := pub.Publish(context.Background(), "lead-created", make(chan int))
	assert.Error(t, err)
}
