package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[RegisterWebhookMessage]      = (*RegisterWebhookCommand)(nil)
	_ gocmd.Commander[StoreSessionMessage]         = (*StoreSessionCommand)(nil)
	_ gocmd.Commander[DeleteSessionMessage]        = (*DeleteSessionCommand)(nil)
	_ gocmd.Commander[DeleteOfflineSessionMessage] = (*DeleteOfflineSessionCommand)(nil)
)
