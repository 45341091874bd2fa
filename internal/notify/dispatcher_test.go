package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/roombook/internal/application"
	"github.com/example/roombook/internal/booking"
)

type stubMailer struct {
	mu      sync.Mutex
	sent    [][]string
	subject string
	body    string
	err     error
	delay   time.Duration
}

func (m *stubMailer) Send(_ context.Context, to []string, subject, body string) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	m.subject = subject
	m.body = body
	return m.err
}

func testNotification() application.Notification {
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	return application.Notification{
		Kind: application.NotificationApproved,
		Booking: application.Booking{
			ID:            "bk-1",
			RequesterName: "สมชาย ใจดี",
			Room:          "ห้องประชุม 1",
			Start:         start,
			End:           start.Add(90 * time.Minute),
			Purpose:       "ประชุมทีม",
			Equipment:     "โปรเจคเตอร์",
			State:         booking.StateApproved,
			StateLabel:    "อนุมัติ",
			Participants: []application.Participant{
				{ID: 1, Name: "สมชาย ใจดี"},
				{ID: 2, Name: "สมหญิง รักงาน"},
			},
		},
		Recipients: []application.Employee{
			{ID: 1, Name: "สมชาย ใจดี", Email: "somchai@example.co.th"},
			{ID: 2, Name: "สมหญิง รักงาน", Email: "somying@example.co.th"},
			{ID: 3, Name: "ซ้ำ", Email: "somchai@example.co.th"},
			{ID: 4, Name: "ไม่มีอีเมล"},
		},
	}
}

func TestDispatcher_DeliversAndConfirms(t *testing.T) {
	t.Parallel()

	mailer := &stubMailer{}
	dispatcher := NewDispatcher(mailer, 1, 4, time.Second, nil)
	defer dispatcher.Close()

	ok := dispatcher.Notify(context.Background(), testNotification())
	require.True(t, ok)

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	require.Len(t, mailer.sent, 1)
	// Duplicate and missing addresses are dropped.
	assert.Equal(t, []string{"somchai@example.co.th", "somying@example.co.th"}, mailer.sent[0])
	assert.Equal(t, "การจองห้องประชุมได้รับการอนุมัติ", mailer.subject)
	assert.Contains(t, mailer.body, "ห้อง: ห้องประชุม 1")
	assert.Contains(t, mailer.body, "เวลา: 09:00 - 10:30")
	assert.Contains(t, mailer.body, "ผู้จอง: สมชาย ใจดี")
	assert.Contains(t, mailer.body, "อุปกรณ์: โปรเจคเตอร์")
}

func TestDispatcher_SendFailureReturnsFalse(t *testing.T) {
	t.Parallel()

	mailer := &stubMailer{err: errors.New("relay down")}
	dispatcher := NewDispatcher(mailer, 1, 4, time.Second, nil)
	defer dispatcher.Close()

	assert.False(t, dispatcher.Notify(context.Background(), testNotification()))
}

func TestDispatcher_SlowDeliveryIsUnconfirmed(t *testing.T) {
	t.Parallel()

	mailer := &stubMailer{delay: 500 * time.Millisecond}
	dispatcher := NewDispatcher(mailer, 1, 4, 50*time.Millisecond, nil)
	defer dispatcher.Close()

	assert.False(t, dispatcher.Notify(context.Background(), testNotification()))
}

func TestDispatcher_NoRecipientsIsSuccess(t *testing.T) {
	t.Parallel()

	mailer := &stubMailer{}
	dispatcher := NewDispatcher(mailer, 1, 4, time.Second, nil)
	defer dispatcher.Close()

	n := testNotification()
	n.Recipients = []application.Employee{{ID: 4, Name: "ไม่มีอีเมล"}}

	assert.True(t, dispatcher.Notify(context.Background(), n))

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	assert.Empty(t, mailer.sent)
}

func TestCompose_KindsHaveDistinctSubjects(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for _, kind := range []application.NotificationKind{
		application.NotificationCreated,
		application.NotificationApproved,
		application.NotificationRejected,
		application.NotificationCancelled,
		application.NotificationUpdated,
	} {
		n := testNotification()
		n.Kind = kind
		subject, body := Compose(n)
		require.NotEmpty(t, subject)
		assert.Contains(t, body, subject)
		seen[subject] = struct{}{}
	}
	assert.Len(t, seen, 5)
}
