package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/webhooks"
)

type WebhookRegistrar interface {
	RegisterWebhook(ctx context.Context, opts webhooks.RegisterOptions) (webhooks.RegisterResult, error)
}

type SessionWriter interface {
	StoreSession(ctx context.Context, session *core.Session) error
	DeleteSession(ctx context.Context, id string) error
	DeleteOfflineSession(ctx context.Context, shop string) error
}

type RegisterWebhookCommand struct {
	registrar WebhookRegistrar
}

func NewRegisterWebhookCommand(registrar WebhookRegistrar) *RegisterWebhookCommand {
	return &RegisterWebhookCommand{registrar: registrar}
}

// Execute stores the RegisterResult in the context result collector when one
// is present.
func (c *RegisterWebhookCommand) Execute(ctx context.Context, msg RegisterWebhookMessage) error {
	if c == nil || c.registrar == nil {
		return commandDependencyError("command: webhook registrar is required")
	}
	out, err := c.registrar.RegisterWebhook(ctx, msg.Options)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type StoreSessionCommand struct {
	writer SessionWriter
}

func NewStoreSessionCommand(writer SessionWriter) *StoreSessionCommand {
	return &StoreSessionCommand{writer: writer}
}

func (c *StoreSessionCommand) Execute(ctx context.Context, msg StoreSessionMessage) error {
	if c == nil || c.writer == nil {
		return commandDependencyError("command: session writer is required")
	}
	return c.writer.StoreSession(ctx, msg.Session)
}

type DeleteSessionCommand struct {
	writer SessionWriter
}

func NewDeleteSessionCommand(writer SessionWriter) *DeleteSessionCommand {
	return &DeleteSessionCommand{writer: writer}
}

func (c *DeleteSessionCommand) Execute(ctx context.Context, msg DeleteSessionMessage) error {
	if c == nil || c.writer == nil {
		return commandDependencyError("command: session writer is required")
	}
	return c.writer.DeleteSession(ctx, msg.SessionID)
}

type DeleteOfflineSessionCommand struct {
	writer SessionWriter
}

func NewDeleteOfflineSessionCommand(writer SessionWriter) *DeleteOfflineSessionCommand {
	return &DeleteOfflineSessionCommand{writer: writer}
}

func (c *DeleteOfflineSessionCommand) Execute(ctx context.Context, msg DeleteOfflineSessionMessage) error {
	if c == nil || c.writer == nil {
		return commandDependencyError("command: session writer is required")
	}
	return c.writer.DeleteOfflineSession(ctx, msg.Shop)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
