package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	gocmd "github.com/goliatone/go-command"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	shopifyauth "github.com/goliatone/go-shopify-auth"
	"github.com/goliatone/go-shopify-auth/adapters/gologger"
	shopifycommand "github.com/goliatone/go-shopify-auth/command"
	"github.com/goliatone/go-shopify-auth/core"
	prommetrics "github.com/goliatone/go-shopify-auth/metrics/prometheus"
	"github.com/goliatone/go-shopify-auth/webhooks"
)

func main() {
	app := cli.App{
		Name:  "shopify-app",
		Usage: "Shopify app server with OAuth, session storage and webhook delivery",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "dotenv file loaded before reading the environment",
				Value:   ".env",
				EnvVars: []string{"SHOPIFY_ENV_FILE"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: runServe,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "listen address",
						Value:   ":8080",
						EnvVars: []string{"SHOPIFY_APP_ADDR"},
					},
					&cli.StringSliceFlag{
						Name:  "forward-topic",
						Usage: "webhook topic republished to AMQP_EXCHANGE (repeatable)",
					},
					&cli.DurationFlag{
						Name:  "delivery-window",
						Usage: "window in which repeated webhook ids are dropped",
						Value: 10 * time.Minute,
					},
				},
			},
			{
				Name:   "migrate",
				Usage:  "apply the session table migrations",
				Action: runMigrate,
			},
			{
				Name:   "register-webhooks",
				Usage:  "register a webhook topic for a shop's offline session",
				Action: runRegisterWebhooks,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "shop", Usage: "shop domain", Required: true},
					&cli.StringSliceFlag{Name: "topic", Usage: "topic to register (repeatable)", Required: true},
					&cli.StringFlag{Name: "path", Usage: "webhook path or pubsub/eventbridge address", Value: webhookPath},
					&cli.StringFlag{Name: "delivery-method", Usage: "http, eventbridge or pubsub", Value: string(webhooks.DeliveryMethodHTTP)},
				},
			},
		},
	}
	app.RunAndExitOnError()
}

// runtime holds what every command needs after reading the environment.
type runtime struct {
	cfg    envConfig
	logger *logrus.Logger
}

func loadRuntime(cctx *cli.Context) (runtime, error) {
	cfg, err := loadEnvConfig(cctx.String("env-file"))
	if err != nil {
		return runtime{}, err
	}
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return runtime{cfg: cfg, logger: logger}, nil
}

func (rt runtime) newApp(store core.SessionStore, opts ...shopifyauth.Option) (*shopifyauth.App, error) {
	provider, err := rt.cfg.configProvider()
	if err != nil {
		return nil, err
	}
	base := []shopifyauth.Option{
		shopifyauth.WithConfigProvider(provider),
		shopifyauth.WithSessionStore(store),
		shopifyauth.WithLoggerProvider(gologger.NewLogrusProvider(rt.logger)),
	}
	return shopifyauth.New(shopifyauth.Config{}, append(base, opts...)...)
}

func runServe(cctx *cli.Context) error {
	rt, err := loadRuntime(cctx)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opened, err := openSessionStore(ctx, rt.cfg)
	if err != nil {
		return err
	}
	defer opened.Close()
	if opened.client != nil {
		if _, err := migrate(ctx, opened.client, rt.cfg.SessionStore); err != nil {
			return err
		}
	}

	recorder := prommetrics.NewRecorder()
	guard := webhooks.NewDeliveryGuard(webhooks.DeliveryGuardOptions{Window: cctx.Duration("delivery-window")})
	app, err := rt.newApp(opened.store,
		shopifyauth.WithMetricsRecorder(recorder),
		shopifyauth.WithRegistryOptions(webhooks.WithDeliveryGuard(guard)),
	)
	if err != nil {
		return err
	}

	closeForwarder, err := rt.forwardTopics(app, cctx.StringSlice("forward-topic"))
	if err != nil {
		return err
	}
	defer closeForwarder()

	srv := &http.Server{
		Addr:              cctx.String("addr"),
		Handler:           newServer(app, recorder.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		rt.logger.WithFields(logrus.Fields{"addr": srv.Addr, "session_store": rt.cfg.SessionStore}).Info("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	rt.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// forwardTopics binds each topic to an AMQP forwarder. It is a no-op
// without topics.
func (rt runtime) forwardTopics(app *shopifyauth.App, topics []string) (func(), error) {
	noop := func() {}
	if len(topics) == 0 {
		return noop, nil
	}
	if strings.TrimSpace(rt.cfg.AMQPURL) == "" {
		return noop, core.NewConfigurationError("shopify-app: AMQP_URL is required to forward topics", nil)
	}

	conn, err := amqp.Dial(rt.cfg.AMQPURL)
	if err != nil {
		return noop, fmt.Errorf("dial amqp: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return noop, fmt.Errorf("open amqp channel: %w", err)
	}
	closeAll := func() {
		_ = channel.Close()
		_ = conn.Close()
	}

	forwarder, err := webhooks.NewAMQPForwarder(channel, rt.cfg.AMQPExchange)
	if err != nil {
		closeAll()
		return noop, err
	}
	for _, topic := range topics {
		if err := app.Webhooks.AddHandler(topic, webhookPath, forwarder); err != nil {
			closeAll()
			return noop, err
		}
		rt.logger.WithFields(logrus.Fields{"topic": webhooks.NormalizeTopic(topic), "exchange": rt.cfg.AMQPExchange}).Info("forwarding webhook topic")
	}
	return closeAll, nil
}

func runMigrate(cctx *cli.Context) error {
	rt, err := loadRuntime(cctx)
	if err != nil {
		return err
	}
	opened, err := openSessionStore(cctx.Context, rt.cfg)
	if err != nil {
		return err
	}
	defer opened.Close()
	if opened.client == nil {
		return core.NewConfigurationError(
			"shopify-app: migrate requires a sql session store",
			map[string]any{"session_store": rt.cfg.SessionStore},
		)
	}
	versions, err := migrate(cctx.Context, opened.client, rt.cfg.SessionStore)
	if err != nil {
		return err
	}
	rt.logger.WithFields(logrus.Fields{
		"session_store": rt.cfg.SessionStore,
		"versions":      versions,
	}).Info("session migrations applied")
	return nil
}

func runRegisterWebhooks(cctx *cli.Context) error {
	rt, err := loadRuntime(cctx)
	if err != nil {
		return err
	}
	ctx := cctx.Context
	opened, err := openSessionStore(ctx, rt.cfg)
	if err != nil {
		return err
	}
	defer opened.Close()

	app, err := rt.newApp(opened.store)
	if err != nil {
		return err
	}
	facade, err := app.Facade()
	if err != nil {
		return err
	}

	shop := cctx.String("shop")
	session, err := app.LoadOfflineSession(ctx, shop, false)
	if err != nil {
		return err
	}
	if session == nil {
		return core.NewSessionNotFoundError("offline_" + shop)
	}

	// Deliveries are handled by the serving process.
	handler := webhooks.HandlerFunc(func(context.Context, string, string, []byte) error { return nil })
	for _, topic := range cctx.StringSlice("topic") {
		collector := gocmd.NewResult[webhooks.RegisterResult]()
		err := facade.Commands().RegisterWebhook.Execute(gocmd.ContextWithResult(ctx, collector), shopifycommand.RegisterWebhookMessage{
			Options: webhooks.RegisterOptions{
				Topic:          topic,
				Path:           cctx.String("path"),
				AccessToken:    session.AccessToken,
				Shop:           session.Shop,
				DeliveryMethod: webhooks.DeliveryMethod(cctx.String("delivery-method")),
				Handler:        handler,
			},
		})
		if err != nil {
			return err
		}
		result, _ := collector.Load()
		rt.logger.WithFields(logrus.Fields{
			"shop":    session.Shop,
			"topic":   webhooks.NormalizeTopic(topic),
			"success": result.Success,
		}).Info("webhook registration finished")
		if !result.Success {
			return fmt.Errorf("register webhook %s: %s", webhooks.NormalizeTopic(topic), string(result.Result))
		}
	}
	return nil
}
