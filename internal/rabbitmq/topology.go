package rabbitmq

import amqp "github.com/rabbitmq/amqp091-go"

// Queue and exchange names. A durable queue maps 1:1 to a job kind; the
// notification queue additionally receives topic fan-out from app_events.
const (
	FileProcessQueue  = "file.process.queue"
	EmailVerifyQueue  = "email.verify.queue"
	EmailResetQueue   = "email.reset.queue"
	NotificationQueue = "notification.service.queue"

	EventsExchange     = "app_events"
	DeadLetterExchange = "app_dlx"
	DeadLetterQueue    = "app_events.dead"

	NotificationRoutingPattern = "notification.#"
)

// SetupTopology declares every queue, the topic exchange and the dead-letter
// parking lot. Safe to call from every process at startup.
func (c *Client) SetupTopology() error {
	// Dead-letter exchange first: work queues reference it in their args.
	if err := c.channel.ExchangeDeclare(DeadLetterExchange, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := c.channel.QueueDeclare(DeadLetterQueue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := c.channel.QueueBind(DeadLetterQueue, "#", DeadLetterExchange, false, nil); err != nil {
		return err
	}

	for _, queue := range []string{FileProcessQueue, EmailVerifyQueue, EmailResetQueue} {
		if err := c.DeclareQueue(queue); err != nil {
			return err
		}
	}

	return c.BindQueue(NotificationQueue, EventsExchange, []string{NotificationRoutingPattern}, amqp.ExchangeTopic)
}
