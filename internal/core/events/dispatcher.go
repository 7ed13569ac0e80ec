// Package events fans assessment lifecycle events out to a publisher in the background.
package events

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/markdave123-py/damage-detector/internal/models"
)

const TypeAssessmentSaved = "assessment.saved"

// Event is the payload published for a saved assessment.
type Event struct {
	Type          string                `json:"type"`
	ID            string                `json:"id"`
	UserID        string                `json:"user_id"`
	CarType       string                `json:"car_type"`
	Severity      string                `json:"severity"`
	EstimatedCost *models.EstimatedCost `json:"estimated_cost,omitempty"`
	Timestamp     time.Time             `json:"timestamp"`
}

func AssessmentSaved(rec *models.AssessmentRecord) Event {
	return Event{
		Type:          TypeAssessmentSaved,
		ID:            rec.ID,
		UserID:        rec.UserID,
		CarType:       rec.CarType,
		Severity:      rec.Severity,
		EstimatedCost: rec.EstimatedCost,
		Timestamp:     rec.Timestamp,
	}
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Dispatcher owns a bounded in-memory queue drained by worker goroutines.
//
// pub:  destination of every event (Kafka or log).
// jobs: queued events; Enqueue drops when it is full.
type Dispatcher struct {
	pub  Publisher
	jobs chan Event
	wg   sync.WaitGroup
}

// NewDispatcher constructs the dispatcher with a bounded job queue.
func NewDispatcher(pub Publisher, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{pub: pub, jobs: make(chan Event, queueSize)}
}

// Start runs numWorkers goroutines reading from the jobs channel until ctx is done.
// On shutdown each worker publishes whatever is still queued before it exits.
func (d *Dispatcher) Start(ctx context.Context, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	for w := 1; w <= numWorkers; w++ {
		d.wg.Add(1)
		go func(w int) {
			defer d.wg.Done()
			for {
				select {
				case <-ctx.Done():
					d.drain(w)
					log.Printf("events: worker %d shutting down.", w)
					return
				case evt := <-d.jobs:
					d.publish(evt, w)
				}
			}
		}(w)
	}
}

func (d *Dispatcher) publish(evt Event, worker int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.pub.Publish(ctx, evt); err != nil {
		log.Printf("events: worker %d failed to publish %s %s: %v", worker, evt.Type, evt.ID, err)
	}
}

func (d *Dispatcher) drain(worker int) {
	for {
		select {
		case evt := <-d.jobs:
			d.publish(evt, worker)
		default:
			return
		}
	}
}

// Enqueue schedules evt without blocking the caller. It reports false when the queue is full.
func (d *Dispatcher) Enqueue(evt Event) bool {
	select {
	case d.jobs <- evt:
		return true
	default:
		log.Printf("events: queue full, dropping %s %s", evt.Type, evt.ID)
		return false
	}
}

// Close waits for the workers to stop (cancel Start's context first), flushes events
// enqueued after they exited and closes the publisher.
func (d *Dispatcher) Close() error {
	d.wg.Wait()
	d.drain(0)
	return d.pub.Close()
}
