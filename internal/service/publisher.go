// Package service holds integrations with outside systems that the
// conversation reports to.  Errors are logged and returned so callers can
// ignore failures without interrupting the purchase flow.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theater-ticket-bot/internal/model"
	"github.com/iliyamo/theater-ticket-bot/internal/queue"
)

// PurchasePublisher publishes TicketPurchasedEvent messages to RabbitMQ.
// Each publish dials its own connection.
type PurchasePublisher struct {
	URL string
	Log logrus.FieldLogger
	now func() time.Time
}

// NewPurchasePublisher returns a publisher for the broker at url.
func NewPurchasePublisher(url string, log logrus.FieldLogger) *PurchasePublisher {
	return &PurchasePublisher{URL: url, Log: log, now: time.Now}
}

// NotifyPurchase publishes the purchase of one ticket of ev by userID.
func (p *PurchasePublisher) NotifyPurchase(ctx context.Context, userID string, ev model.Event) error {
	return p.Publish(ctx, queue.NewTicketPurchasedEvent(userID, ev, p.now()))
}

// Publish sends event to the "ticket.purchased" queue.  Messages are
// marked as persistent.
func (p *PurchasePublisher) Publish(ctx context.Context, event queue.TicketPurchasedEvent) error {
	log := p.Log.WithField("purchase_id", event.PurchaseID)

	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      dialer(ctx),
	})
	if err != nil {
		log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		queue.TicketPurchasedQueue, // name
		true,                       // durable
		false,                      // autoDelete
		false,                      // exclusive
		false,                      // noWait
		nil,                        // args
	); err != nil {
		log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.PurchaseID,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.TicketPurchasedQueue, false, false, pub); err != nil {
		log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}
