package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Oniqq60/study_space/internal/rabbitmq"
)

// Consumer обслуживает почтовые очереди: verify, reset и общий поток
// уведомлений из топик-обменника.
type Consumer struct {
	sender *Sender
	log    *zap.SugaredLogger
}

func NewConsumer(sender *Sender, log *zap.SugaredLogger) *Consumer {
	return &Consumer{sender: sender, log: log}
}

// Register вешает обработчики на все три очереди.
func (c *Consumer) Register(client *rabbitmq.Client) error {
	if err := client.RegisterConsumer(rabbitmq.EmailVerifyQueue, c.HandleEmail); err != nil {
		return err
	}
	if err := client.RegisterConsumer(rabbitmq.EmailResetQueue, c.HandleEmail); err != nil {
		return err
	}
	return client.RegisterConsumer(rabbitmq.NotificationQueue, c.HandleNotification)
}

// HandleEmail отправляет verify/reset письмо по конверту.
func (c *Consumer) HandleEmail(ctx context.Context, d rabbitmq.Delivery) error {
	payload, err := d.Envelope.Decode()
	if err != nil {
		return err
	}
	job, ok := payload.(rabbitmq.EmailJob)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", payload)
	}
	if job.Email == "" {
		c.log.Warnw("email job without recipient, dropping", "type", d.Envelope.Type)
		return nil
	}

	var subject, body string
	switch d.Envelope.Type {
	case rabbitmq.TypeEmailVerify:
		subject = "Подтвердите адрес почты"
		body, err = c.sender.Render("verify.html", map[string]string{
			"Name": job.Name,
			"Link": c.sender.verifyLink(job.Token),
		})
	case rabbitmq.TypeEmailReset:
		subject = "Сброс пароля"
		body, err = c.sender.Render("reset.html", map[string]string{
			"Name": job.Name,
			"Link": c.sender.resetLink(job.Token),
		})
	default:
		return fmt.Errorf("%w: %q", rabbitmq.ErrUnknownType, d.Envelope.Type)
	}
	if err != nil {
		return err
	}

	if err := c.sender.Send(job.Email, subject, body); err != nil {
		return err
	}

	c.log.Infow("email sent", "type", d.Envelope.Type, "to", job.Email)
	return nil
}

// HandleNotification шлёт произвольное уведомление из app_events.
func (c *Consumer) HandleNotification(ctx context.Context, d rabbitmq.Delivery) error {
	payload, err := d.Envelope.Decode()
	if err != nil {
		return err
	}
	notification, ok := payload.(rabbitmq.NotificationPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", payload)
	}
	if notification.Email == "" {
		c.log.Warnw("notification without recipient, dropping", "userId", notification.UserID)
		return nil
	}

	body, err := c.sender.Render("notification.html", map[string]string{
		"Subject": notification.Subject,
		"Message": notification.Message,
	})
	if err != nil {
		return err
	}

	if err := c.sender.Send(notification.Email, notification.Subject, body); err != nil {
		return err
	}

	c.log.Infow("notification sent", "to", notification.Email)
	return nil
}
