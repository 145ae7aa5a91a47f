// Package events publishes order lifecycle events to the message broker.
package events

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"pureplatter/internal/models"
)

// Routing keys on the order exchange.
const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	OrderDelivered     = "order.delivered"
)

type Publisher interface {
	Publish(ctx context.Context, event models.OrderEvent) error
}

// NopPublisher drops events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.OrderEvent) error { return nil }

// RabbitPublisher publishes persistent JSON messages on a durable topic exchange.
type RabbitPublisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
}

func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &RabbitPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, event models.OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		MessageId:    event.OrderID + ":" + event.Type + ":" + event.Status,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(
		ctx,
		p.exchange,
		event.Type,
		false, // mandatory
		false, // immediate
		msg,
	)
}

func (p *RabbitPublisher) Close() {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			log.Println("[EVENTS] [WARN] channel close:", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			log.Println("[EVENTS] [WARN] connection close:", err)
		}
	}
}

// NewOrderEvent builds an event for order with the given routing key.
func NewOrderEvent(kind string, order *models.Order) models.OrderEvent {
	return models.OrderEvent{
		OrderID:  order.ID.Hex(),
		UserID:   order.UserID.Hex(),
		Type:     kind,
		Status:   string(order.Status),
		Total:    order.TotalAmount,
		Occurred: time.Now().UTC(),
	}
}
