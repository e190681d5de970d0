package webhooks

import (
	"context"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/goliatone/go-shopify-auth/core"
)

// AMQPPublisher is satisfied by *amqp.Channel.
type AMQPPublisher interface {
	PublishWithContext(ctx context.Context, exchange string, key string, mandatory bool, immediate bool, msg amqp.Publishing) error
}

type AMQPForwarderOption func(*AMQPForwarder)

func WithAMQPAppID(appID string) AMQPForwarderOption {
	return func(f *AMQPForwarder) {
		f.appID = strings.TrimSpace(appID)
	}
}

func WithAMQPClock(now func() time.Time) AMQPForwarderOption {
	return func(f *AMQPForwarder) {
		if now != nil {
			f.now = now
		}
	}
}

// AMQPForwarder is a Handler that republishes verified deliveries to an
// exchange, routed by normalized topic.
type AMQPForwarder struct {
	publisher AMQPPublisher
	exchange  string
	appID     string
	now       func() time.Time
}

func NewAMQPForwarder(publisher AMQPPublisher, exchange string, opts ...AMQPForwarderOption) (*AMQPForwarder, error) {
	if publisher == nil {
		return nil, core.NewConfigurationError("webhooks: amqp publisher is required", nil)
	}
	forwarder := &AMQPForwarder{
		publisher: publisher,
		exchange:  strings.TrimSpace(exchange),
		appID:     "go-shopify-auth",
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(forwarder)
		}
	}
	return forwarder, nil
}

func (f *AMQPForwarder) HandleWebhook(ctx context.Context, topic string, shop string, body []byte) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    f.now().UTC(),
		AppId:        f.appID,
		Type:         topic,
		Headers: amqp.Table{
			"shop":  shop,
			"topic": topic,
		},
		Body: body,
	}
	if err := f.publisher.PublishWithContext(ctx, f.exchange, topic, false, false, msg); err != nil {
		return core.WrapError(
			err,
			goerrors.CategoryExternal,
			"webhooks: forward delivery to amqp",
			http.StatusBadGateway,
			core.ErrorInternal,
			map[string]any{"exchange": f.exchange, "topic": topic, "shop": shop},
		)
	}
	return nil
}

var _ Handler = (*AMQPForwarder)(nil)
