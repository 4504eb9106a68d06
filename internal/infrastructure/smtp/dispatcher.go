package smtp

import (
	"log/slog"
	"sync"
)

// Email is one queued outbound message.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Dispatcher sends emails best-effort on a bounded worker pool. Enqueue never
// blocks the caller and delivery failures are logged, not surfaced; a flow's
// response must not depend on the mail server.
type Dispatcher struct {
	mailer  Mailer
	queue   chan Email
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// NewDispatcher starts the worker goroutines draining a queue of queueSize.
func NewDispatcher(mailer Mailer, workers, queueSize int) *Dispatcher {
	d := &Dispatcher{
		mailer: mailer,
		queue:  make(chan Email, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for e := range d.queue {
		if err := d.mailer.SendEmail(e.To, e.Subject, e.Body); err != nil {
			slog.Warn("email delivery failed", "to", e.To, "subject", e.Subject, "err", err)
		}
	}
}

// Enqueue queues an email for delivery. When the queue is saturated the email
// is dropped with a warning rather than blocking the request path.
func (d *Dispatcher) Enqueue(e Email) {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()
	if d.closed {
		slog.Warn("email dropped, dispatcher closed", "to", e.To, "subject", e.Subject)
		return
	}
	select {
	case d.queue <- e:
	default:
		slog.Warn("email dropped, queue full", "to", e.To, "subject", e.Subject)
	}
}

// Close stops accepting emails and waits for in-flight deliveries.
func (d *Dispatcher) Close() {
	d.closeMu.Lock()
	if d.closed {
		d.closeMu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.closeMu.Unlock()
	d.wg.Wait()
}
