package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Dispatcher fans events out to matching subscriptions through a bounded
// worker pool. Dispatch never blocks the caller: jobs the queue cannot take
// are dropped, and delivery outcomes are observable only through the
// delivery log and the subscription's failure accounting.
type Dispatcher struct {
	webhooks   *WebhookService
	deliveries *DeliveryService

	jobs       chan deliveryJob
	wg         sync.WaitGroup
	maxRetries int
	maxBackoff time.Duration

	mu     sync.Mutex
	closed bool
}

type deliveryJob struct {
	subscriptionID uuid.UUID
	tenantID       uuid.UUID
	event          string
	payload        json.RawMessage
	attempt        int
}

func NewDispatcher(webhooks *WebhookService, deliveries *DeliveryService, workers, queueSize, maxRetries int) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	d := &Dispatcher{
		webhooks:   webhooks,
		deliveries: deliveries,
		jobs:       make(chan deliveryJob, queueSize),
		maxRetries: maxRetries,
		maxBackoff: 10 * time.Minute,
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Dispatch queues one delivery per active subscription of the tenant that
// listens for event. No matches is a no-op. Callers never wait on, and are
// never failed by, the deliveries this triggers.
func (d *Dispatcher) Dispatch(tenantID uuid.UUID, event string, payload json.RawMessage) {
	subs, err := d.webhooks.ListMatching(context.Background(), tenantID, event)
	if err != nil {
		log.Printf("webhook dispatch: subscription lookup failed for %s/%s: %v", tenantID, event, err)
		return
	}

	for _, sub := range subs {
		d.enqueue(deliveryJob{
			subscriptionID: sub.ID,
			tenantID:       tenantID,
			event:          event,
			payload:        payload,
		})
	}
}

func (d *Dispatcher) enqueue(job deliveryJob) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	select {
	case d.jobs <- job:
	default:
		log.Printf("webhook dispatch: queue full, dropping %s for subscription %s", job.event, job.subscriptionID)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.run(job)
	}
}

func (d *Dispatcher) run(job deliveryJob) {
	ctx := context.Background()

	// Re-read the subscription so retries observe auto-disable and any
	// owner edits made since the job was queued.
	sub, err := d.webhooks.GetByID(ctx, job.tenantID, job.subscriptionID)
	if err != nil || !sub.IsActive {
		return
	}
	if job.attempt > 0 && !containsEvent(sub.Events, job.event) {
		return
	}

	delivery, err := d.deliveries.Deliver(ctx, sub, job.event, job.payload)
	if err != nil {
		log.Printf("webhook dispatch: delivery to subscription %s failed: %v", sub.ID, err)
		return
	}
	if delivery.Success || !sub.IsActive || job.attempt >= d.maxRetries {
		return
	}

	d.scheduleRetry(job, sub.RetryBackoffSecs)
}

func (d *Dispatcher) scheduleRetry(job deliveryJob, backoffSecs int) {
	if backoffSecs <= 0 {
		backoffSecs = defaultBackoffSecs
	}

	delay := time.Duration(backoffSecs) * time.Second << uint(job.attempt)
	if delay > d.maxBackoff {
		delay = d.maxBackoff
	}

	job.attempt++
	time.AfterFunc(delay, func() { d.enqueue(job) })
}

// Shutdown stops intake and waits for in-flight deliveries, up to the
// context deadline. Pending retries scheduled for after shutdown are lost.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func containsEvent(events []string, event string) bool {
	for _, e := range events {
		if e == event {
			return true
		}
	}
	return false
}
