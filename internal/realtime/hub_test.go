package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()

	builder, _ := testBuilder()
	hub := NewHub(builder, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func connectClient(t *testing.T, hub *Hub) *Client {
	t.Helper()

	client := &Client{hub: hub, send: make(chan []byte, sendBufferSize)}
	select {
	case hub.register <- client:
	case <-time.After(time.Second):
		t.Fatal("hub did not accept registration")
	}
	return client
}

func sendFrame(t *testing.T, hub *Hub, client *Client, frame clientFrame) {
	t.Helper()

	select {
	case hub.inbound <- inboundMessage{client: client, frame: frame}:
	case <-time.After(time.Second):
		t.Fatal("hub did not accept frame")
	}
}

func readPayload(t *testing.T, client *Client) map[string]any {
	t.Helper()

	select {
	case payload, ok := <-client.send:
		require.True(t, ok, "send channel closed")
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(payload, &decoded))
		return decoded
	case <-time.After(2 * time.Second):
		t.Fatal("no payload received")
		return nil
	}
}

func assertNoPayload(t *testing.T, client *Client) {
	t.Helper()

	select {
	case payload := <-client.send:
		t.Fatalf("unexpected payload: %s", payload)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestHub_SubscribeDayReceivesSnapshotAndUpdates(t *testing.T) {
	t.Parallel()

	hub := startHub(t)
	client := connectClient(t, hub)

	sendFrame(t, hub, client, clientFrame{Type: "subscribeDay", Date: "2024-06-03"})

	first := readPayload(t, client)
	assert.Equal(t, "scheduleUpdate", first["type"])
	assert.Equal(t, "2024-06-03", first["date"])
	bookings := first["bookings"].([]any)
	require.Len(t, bookings, 1)

	hub.PublishBookingChange(context.Background(), time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC))

	second := readPayload(t, client)
	assert.Equal(t, "scheduleUpdate", second["type"])
	assert.Equal(t, "2024-06-03", second["date"])
}

func TestHub_UnsubscribedClientGetsNoUpdates(t *testing.T) {
	t.Parallel()

	hub := startHub(t)
	client := connectClient(t, hub)

	sendFrame(t, hub, client, clientFrame{Type: "subscribeDay", Date: "2024-06-03"})
	readPayload(t, client)

	sendFrame(t, hub, client, clientFrame{Type: "unsubscribeDay", Date: "2024-06-03"})
	// Frames are handled in order; the one-shot reply confirms the
	// unsubscribe has been processed before the change is published.
	sendFrame(t, hub, client, clientFrame{Type: "requestSchedule", Date: "2024-06-03"})
	readPayload(t, client)

	hub.PublishBookingChange(context.Background(), time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC))

	assertNoPayload(t, client)
}

func TestHub_MonthSubscription(t *testing.T) {
	t.Parallel()

	hub := startHub(t)
	client := connectClient(t, hub)

	sendFrame(t, hub, client, clientFrame{Type: "subscribeMonth", Year: 2024, Month: 6})

	first := readPayload(t, client)
	assert.Equal(t, "meetingsUpdated", first["type"])
	assert.Equal(t, float64(2024), first["year"])
	assert.Equal(t, float64(6), first["month"])
	meetings := first["meetings"].([]any)
	require.Len(t, meetings, 2)

	// A change in June refreshes the month view too.
	hub.PublishBookingChange(context.Background(), time.Date(2024, 6, 20, 9, 0, 0, 0, time.UTC))
	second := readPayload(t, client)
	assert.Equal(t, "meetingsUpdated", second["type"])

	// A change in another month does not.
	hub.PublishBookingChange(context.Background(), time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC))
	assertNoPayload(t, client)
}

func TestHub_RequestScheduleIsOneShot(t *testing.T) {
	t.Parallel()

	hub := startHub(t)
	client := connectClient(t, hub)

	sendFrame(t, hub, client, clientFrame{Type: "requestSchedule", Date: "2024-06-03"})

	payload := readPayload(t, client)
	assert.Equal(t, "scheduleUpdate", payload["type"])

	// No subscription was created, so changes stay silent.
	hub.PublishBookingChange(context.Background(), time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC))
	assertNoPayload(t, client)
}

func TestHub_InvalidSubscribeDateIsIgnored(t *testing.T) {
	t.Parallel()

	hub := startHub(t)
	client := connectClient(t, hub)

	sendFrame(t, hub, client, clientFrame{Type: "subscribeDay", Date: "ไม่ใช่วันที่"})
	assertNoPayload(t, client)

	// The client is still usable afterwards.
	sendFrame(t, hub, client, clientFrame{Type: "subscribeDay", Date: "2024-06-03"})
	payload := readPayload(t, client)
	assert.Equal(t, "scheduleUpdate", payload["type"])
}

func TestHub_UnregisterClosesSendChannel(t *testing.T) {
	t.Parallel()

	hub := startHub(t)
	client := connectClient(t, hub)
	sendFrame(t, hub, client, clientFrame{Type: "subscribeDay", Date: "2024-06-03"})
	readPayload(t, client)

	select {
	case hub.unregister <- client:
	case <-time.After(time.Second):
		t.Fatal("hub did not accept unregistration")
	}

	select {
	case _, ok := <-client.send:
		assert.False(t, ok, "send channel must be closed")
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}
