// Package service publishes domain events to RabbitMQ.  Publishing is
// best effort: failures are logged and swallowed so a broker outage
// never fails a committed mutation.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/intake-calendar/internal/queue"
)

// NotifyPublisher pushes engine events onto durable queues consumed by
// the notification worker.
type NotifyPublisher struct{}

// NewNotifyPublisher returns a publisher; it holds no connection state
// and dials per publish, which keeps it trivially safe under
// concurrent use at this traffic level.
func NewNotifyPublisher() *NotifyPublisher {
	return &NotifyPublisher{}
}

// CandidateConfirmed publishes a confirmation event to the
// candidate.confirmed queue.
func (p *NotifyPublisher) CandidateConfirmed(ctx context.Context, ev queue.CandidateConfirmedEvent) {
	publish(ctx, queue.ConfirmedQueueName, ev)
}

// AssignmentExited publishes an exit event to the assignment.exited
// queue.
func (p *NotifyPublisher) AssignmentExited(ctx context.Context, ev queue.AssignmentExitedEvent) {
	publish(ctx, queue.ExitedQueueName, ev)
}

func publish(ctx context.Context, queueName string, event any) {
	conn, err := amqp.Dial(queue.BrokerURL())
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
	}
}
