package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

const snapshotTimeout = 5 * time.Second

type clientFrame struct {
	Type  string `json:"type"`
	Date  string `json:"date,omitempty"`
	Year  int    `json:"year,omitempty"`
	Month int    `json:"month,omitempty"`
}

type scheduleUpdateFrame struct {
	Type     string         `json:"type"`
	Date     string         `json:"date"`
	Bookings []BookingEntry `json:"bookings"`
}

type meetingsUpdatedFrame struct {
	Type     string         `json:"type"`
	Year     int            `json:"year"`
	Month    int            `json:"month"`
	Meetings []BookingEntry `json:"meetings"`
}

type inboundMessage struct {
	client *Client
	frame  clientFrame
}

// Hub owns all websocket clients and their topic subscriptions. All state is
// confined to the Run goroutine; other goroutines talk to it via channels.
type Hub struct {
	snapshots *SnapshotBuilder
	logger    *slog.Logger

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMessage
	changes    chan []time.Time

	clients map[*Client]map[string]struct{}
	topics  map[string]map[*Client]struct{}
}

// NewHub creates a hub that serves snapshots from the given builder.
func NewHub(snapshots *SnapshotBuilder, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		snapshots:  snapshots,
		logger:     logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundMessage, 64),
		changes:    make(chan []time.Time, 64),
		clients:    make(map[*Client]map[string]struct{}),
		topics:     make(map[string]map[*Client]struct{}),
	}
}

// Run processes hub events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.dropClient(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = make(map[string]struct{})
			h.logger.Debug("websocket client connected", "clients", len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.dropClient(client)
				h.logger.Debug("websocket client disconnected", "clients", len(h.clients))
			}
		case message := <-h.inbound:
			h.handleFrame(message.client, message.frame)
		case instants := <-h.changes:
			h.broadcastChange(instants)
		}
	}
}

// PublishBookingChange implements the publisher hook used by the booking
// service. It never blocks the caller: the cache is invalidated inline and
// the broadcast is queued for the hub goroutine.
func (h *Hub) PublishBookingChange(_ context.Context, at ...time.Time) {
	if len(at) == 0 {
		return
	}
	h.snapshots.Invalidate(at...)

	instants := make([]time.Time, len(at))
	copy(instants, at)
	select {
	case h.changes <- instants:
	default:
		h.logger.Warn("realtime change queue full, broadcast dropped")
	}
}

func (h *Hub) handleFrame(client *Client, frame clientFrame) {
	if _, ok := h.clients[client]; !ok {
		return
	}

	switch frame.Type {
	case "subscribeDay":
		key := "day:" + frame.Date
		if !h.sendDaySnapshot(client, frame.Date) {
			return
		}
		h.subscribe(client, key)
	case "unsubscribeDay":
		h.unsubscribe(client, "day:"+frame.Date)
	case "subscribeMonth":
		first := time.Date(frame.Year, time.Month(frame.Month), 1, 0, 0, 0, 0, h.snapshots.Location())
		if !h.sendMonthSnapshot(client, frame.Year, time.Month(frame.Month)) {
			return
		}
		h.subscribe(client, monthKey(first))
	case "unsubscribeMonth":
		first := time.Date(frame.Year, time.Month(frame.Month), 1, 0, 0, 0, 0, h.snapshots.Location())
		h.unsubscribe(client, monthKey(first))
	case "requestSchedule":
		// One-shot refresh without a subscription.
		h.sendDaySnapshot(client, frame.Date)
	default:
		h.logger.Debug("unknown websocket frame", "frame_type", frame.Type)
	}
}

func (h *Hub) subscribe(client *Client, key string) {
	topics, ok := h.clients[client]
	if !ok {
		return
	}
	topics[key] = struct{}{}
	if h.topics[key] == nil {
		h.topics[key] = make(map[*Client]struct{})
	}
	h.topics[key][client] = struct{}{}
}

func (h *Hub) unsubscribe(client *Client, key string) {
	if topics, ok := h.clients[client]; ok {
		delete(topics, key)
	}
	if subscribers, ok := h.topics[key]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.topics, key)
		}
	}
}

func (h *Hub) broadcastChange(instants []time.Time) {
	keys := make(map[string]struct{})
	for _, t := range instants {
		local := t.In(h.snapshots.Location())
		keys[dayKey(local)] = struct{}{}
		keys[monthKey(local)] = struct{}{}
	}

	for key := range keys {
		subscribers, ok := h.topics[key]
		if !ok || len(subscribers) == 0 {
			continue
		}

		payload, ok := h.buildTopicFrame(key)
		if !ok {
			continue
		}
		for client := range subscribers {
			h.sendPayload(client, payload)
		}
	}
}

func (h *Hub) buildTopicFrame(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	if date, ok := strings.CutPrefix(key, "day:"); ok {
		entries, err := h.snapshots.Day(ctx, date)
		if err != nil {
			h.logger.Error("day snapshot failed", "date", date, "error", err)
			return nil, false
		}
		return marshalFrame(scheduleUpdateFrame{Type: "scheduleUpdate", Date: date, Bookings: entries})
	}

	if rawMonth, ok := strings.CutPrefix(key, "month:"); ok {
		first, err := time.ParseInLocation("2006-01", rawMonth, h.snapshots.Location())
		if err != nil {
			return nil, false
		}
		entries, err := h.snapshots.Month(ctx, first.Year(), first.Month())
		if err != nil {
			h.logger.Error("month snapshot failed", "month", rawMonth, "error", err)
			return nil, false
		}
		return marshalFrame(meetingsUpdatedFrame{
			Type:     "meetingsUpdated",
			Year:     first.Year(),
			Month:    int(first.Month()),
			Meetings: entries,
		})
	}

	return nil, false
}

func (h *Hub) sendDaySnapshot(client *Client, date string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	entries, err := h.snapshots.Day(ctx, date)
	if err != nil {
		h.logger.Debug("day snapshot request rejected", "date", date, "error", err)
		return false
	}
	payload, ok := marshalFrame(scheduleUpdateFrame{Type: "scheduleUpdate", Date: date, Bookings: entries})
	if !ok {
		return false
	}
	h.sendPayload(client, payload)
	return true
}

func (h *Hub) sendMonthSnapshot(client *Client, year int, month time.Month) bool {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	entries, err := h.snapshots.Month(ctx, year, month)
	if err != nil {
		h.logger.Debug("month snapshot request rejected", "year", year, "month", int(month), "error", err)
		return false
	}
	payload, ok := marshalFrame(meetingsUpdatedFrame{Type: "meetingsUpdated", Year: year, Month: int(month), Meetings: entries})
	if !ok {
		return false
	}
	h.sendPayload(client, payload)
	return true
}

// sendPayload never blocks the hub loop. A client that cannot keep up with
// its send buffer is dropped.
func (h *Hub) sendPayload(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		h.logger.Warn("websocket client too slow, dropping")
		h.dropClient(client)
	}
}

func (h *Hub) dropClient(client *Client) {
	topics, ok := h.clients[client]
	if !ok {
		return
	}
	for key := range topics {
		if subscribers, ok := h.topics[key]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.topics, key)
			}
		}
	}
	delete(h.clients, client)
	close(client.send)
}

func marshalFrame(frame any) ([]byte, bool) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return nil, false
	}
	return payload, true
}
