// Package service publishes authentication domain events to RabbitMQ.
// Publishing is best-effort: errors are logged and returned so callers can
// ignore failures without interrupting the request flow.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/campusflow/school-api/internal/queue"
)

// EventPublisher publishes AuthEvents to the auth.events queue. A nil or
// empty URL disables publishing entirely.
type EventPublisher struct {
	url string
}

func NewEventPublisher(url string) *EventPublisher {
	return &EventPublisher{url: url}
}

// Publish emits an auth event with a fresh event id and timestamp. Messages
// are persistent so they survive broker restarts.
func (p *EventPublisher) Publish(ctx context.Context, eventType string, userID uint64, roleName, ip string) error {
	if p == nil || p.url == "" {
		return nil
	}
	ev := queue.AuthEvent{
		EventID:  uuid.NewString(),
		Type:     eventType,
		UserID:   userID,
		RoleName: roleName,
		IP:       ip,
		At:       time.Now().UTC(),
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		logrus.WithError(err).Warn("events: rabbitmq dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logrus.WithError(err).Warn("events: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(queue.AuthQueueName, true, false, false, false, nil); err != nil {
		logrus.WithError(err).Warn("events: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	err = ch.PublishWithContext(pubCtx, "", queue.AuthQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		logrus.WithError(err).Warn("events: publish failed")
	}
	return err
}
