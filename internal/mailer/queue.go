package mailer

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"mailsched/internal/models"
)

// QueueSender publishes rendered jobs to a RabbitMQ queue instead of
// delivering them inline; a downstream consumer owns the actual SMTP
// conversation. Used when the server runs in queue-writer mode.
type QueueSender struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

type queuedMessage struct {
	MessageID string         `json:"messageId"`
	Payload   models.Payload `json:"payload"`
}

func NewQueueSender(url, queue string) (*QueueSender, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &QueueSender{
		conn:    conn,
		channel: ch,
		queue:   queue,
	}, nil
}

func (q *QueueSender) Send(ctx context.Context, p models.Payload) (string, error) {
	messageID := NewMessageID(p.Host)

	body, err := json.Marshal(queuedMessage{MessageID: messageID, Payload: p})
	if err != nil {
		return "", fmt.Errorf("marshal queued message: %w", err)
	}

	if err := q.channel.PublishWithContext(
		ctx,
		"",
		q.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Body:         body,
		},
	); err != nil {
		return "", fmt.Errorf("publish to %s: %w", q.queue, err)
	}
	return messageID, nil
}

func (q *QueueSender) Close() error {
	if err := q.channel.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}
