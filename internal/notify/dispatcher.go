package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/roombook/internal/application"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 64
	defaultTimeout   = 10 * time.Second
)

type job struct {
	to      []string
	subject string
	body    string
	done    chan bool
}

// Dispatcher fans booking lifecycle notifications out to a small worker pool
// so slow SMTP relays never stall a request for long. Notify waits a bounded
// time for the delivery outcome; past that the caller is told delivery is
// unconfirmed while the workers keep trying.
type Dispatcher struct {
	mailer  Mailer
	logger  *slog.Logger
	timeout time.Duration

	jobs      chan job
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewDispatcher starts the worker pool. Close releases it.
func NewDispatcher(mailer Mailer, workers, queueSize int, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		mailer:  mailer,
		logger:  logger,
		timeout: timeout,
		jobs:    make(chan job, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Close stops accepting work and waits for in-flight deliveries.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.jobs) })
	d.wg.Wait()
}

// Notify implements application.Notifier. It returns false when delivery
// could not be confirmed within the dispatcher's timeout.
func (d *Dispatcher) Notify(ctx context.Context, n application.Notification) bool {
	addresses := recipientAddresses(n.Recipients)
	if len(addresses) == 0 {
		return true
	}

	subject, body := Compose(n)
	j := job{to: addresses, subject: subject, body: body, done: make(chan bool, 1)}

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	select {
	case d.jobs <- j:
	case <-ctx.Done():
		d.logger.WarnContext(ctx, "notification dropped, context cancelled", "kind", string(n.Kind))
		return false
	case <-timer.C:
		d.logger.WarnContext(ctx, "notification queue full", "kind", string(n.Kind))
		return false
	}

	select {
	case ok := <-j.done:
		return ok
	case <-ctx.Done():
		return false
	case <-timer.C:
		d.logger.WarnContext(ctx, "notification delivery unconfirmed", "kind", string(n.Kind))
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for j := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.mailer.Send(ctx, j.to, j.subject, j.body)
		cancel()

		if err != nil {
			d.logger.Error("notification email failed", "error", err, "recipients", len(j.to))
		}
		j.done <- err == nil
	}
}

func recipientAddresses(recipients []application.Employee) []string {
	var addresses []string
	seen := make(map[string]struct{}, len(recipients))
	for _, recipient := range recipients {
		address := strings.TrimSpace(recipient.Email)
		if address == "" {
			continue
		}
		if _, ok := seen[address]; ok {
			continue
		}
		seen[address] = struct{}{}
		addresses = append(addresses, address)
	}
	return addresses
}

var subjects = map[application.NotificationKind]string{
	application.NotificationCreated:   "มีการจองห้องประชุมใหม่",
	application.NotificationApproved:  "การจองห้องประชุมได้รับการอนุมัติ",
	application.NotificationRejected:  "การจองห้องประชุมไม่ได้รับการอนุมัติ",
	application.NotificationCancelled: "การจองห้องประชุมถูกยกเลิก",
	application.NotificationUpdated:   "มีการแก้ไขการจองห้องประชุม",
}

// Compose renders the subject and plain-text body for a notification.
func Compose(n application.Notification) (string, string) {
	subject, ok := subjects[n.Kind]
	if !ok {
		subject = "แจ้งเตือนการจองห้องประชุม"
	}

	b := n.Booking
	names := make([]string, 0, len(b.Participants))
	for _, participant := range b.Participants {
		names = append(names, participant.Name)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%s\n\n", subject)
	fmt.Fprintf(&body, "ห้อง: %s\n", b.Room)
	fmt.Fprintf(&body, "วันที่: %s\n", b.Start.Format("2006-01-02"))
	fmt.Fprintf(&body, "เวลา: %s - %s\n", b.Start.Format("15:04"), b.End.Format("15:04"))
	fmt.Fprintf(&body, "วัตถุประสงค์: %s\n", b.Purpose)
	fmt.Fprintf(&body, "ผู้จอง: %s\n", b.RequesterName)
	if len(names) > 0 {
		fmt.Fprintf(&body, "ผู้เข้าร่วม: %s\n", strings.Join(names, ", "))
	}
	if b.Equipment != "" {
		fmt.Fprintf(&body, "อุปกรณ์: %s\n", b.Equipment)
	}
	if b.Remark != "" {
		fmt.Fprintf(&body, "หมายเหตุ: %s\n", b.Remark)
	}
	fmt.Fprintf(&body, "สถานะ: %s\n", b.StateLabel)

	return subject, body.String()
}
