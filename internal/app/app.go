package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/kobayashi-signals/internal/api"
	"github.com/nerrad567/kobayashi-signals/internal/credentials"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/config"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/logging"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/metrics"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/mqtt"
	"github.com/nerrad567/kobayashi-signals/internal/session"
)

// errInterrupted is returned by start when ctx was cancelled during connect.
var errInterrupted = errors.New("interrupted before connection was established")

// runtime is a connected client with its background tasks.
type runtime struct {
	logger   *logging.Logger
	client   *mqtt.Client
	shutdown *session.Shutdown

	group     *errgroup.Group
	stopGroup context.CancelFunc
}

// start performs the setup shared by both roles and connects to the broker.
//
// handler is nil for the publisher. On success the caller must call close.
func start(ctx context.Context, cfg *config.Config, logger *logging.Logger, version string, rec *metrics.Recorder, handler mqtt.MessageHandler) (*runtime, error) {
	if err := validateTopic(cfg); err != nil {
		logger.Error("Invalid topic", "topic", cfg.Topic, "error", err)
		return nil, err
	}

	paths := credentials.Paths{CACert: cfg.TLS.CACert, Cert: cfg.TLS.Cert, Key: cfg.TLS.Key}
	if err := credentials.Verify(paths); err != nil {
		logCredentialError(logger, err)
		return nil, err
	}

	logger.Info("Setting up TLS/SSL with certificate authentication")
	tlsCfg, err := mqtt.ConfigureTLS(paths)
	if err != nil {
		logger.Error("Failed to set up TLS", "error", err)
		return nil, err
	}

	clientID := mqtt.NewClientID(string(cfg.Role))

	dispatcher := session.New(session.Config{
		Role:    cfg.Role,
		Broker:  cfg.Broker.Address(),
		Topic:   cfg.Topic,
		Handler: handler,
	}, logger, rec)

	client, err := mqtt.NewClient(mqtt.Options{
		Host:           cfg.Broker.Host,
		Port:           cfg.Broker.Port,
		ClientID:       clientID,
		ConnectTimeout: cfg.GetConnectTimeout(),
		KeepAlive:      cfg.GetKeepAlive(),
		AckTimeout:     cfg.GetAckTimeout(),
	}, tlsCfg, dispatcher)
	if err != nil {
		return nil, fmt.Errorf("creating MQTT client: %w", err)
	}
	client.SetLogger(logger.With("component", "mqtt"))
	dispatcher.SetSubscriber(client)

	// Background tasks outlive the interrupt so the final disconnect is observed.
	bgCtx, stopGroup := context.WithCancel(context.WithoutCancel(ctx))
	group, groupCtx := errgroup.WithContext(bgCtx)

	rt := &runtime{
		logger:    logger,
		client:    client,
		group:     group,
		stopGroup: stopGroup,
	}

	group.Go(func() error {
		return dispatcher.Run(groupCtx)
	})

	if cfg.Status.Addr != "" {
		srv, err := api.New(api.Deps{
			Addr:      cfg.Status.Addr,
			Logger:    logger,
			State:     dispatcher,
			Transport: client,
			Metrics:   rec,
			Role:      string(cfg.Role),
			ClientID:  clientID,
			Version:   version,
		})
		if err == nil {
			err = srv.Start()
		}
		if err != nil {
			rt.stopBackground()
			return nil, fmt.Errorf("starting status server: %w", err)
		}
		group.Go(func() error {
			<-groupCtx.Done()
			return srv.Close()
		})
	}

	logger.Info(fmt.Sprintf("Connecting to secure broker %s...", cfg.Broker.Address()),
		"broker", cfg.Broker.Address(),
		"client_id", clientID,
	)
	if err := client.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			rt.stopBackground()
			return nil, errInterrupted
		}
		logger.Error("Connection failed", "broker", cfg.Broker.Address(), "error", err)
		rt.stopBackground()
		return nil, err
	}

	rt.shutdown = session.NewShutdown(client, logger)
	return rt, nil
}

// close runs the shutdown once, then stops the background tasks after the
// dispatcher has seen the disconnect.
func (rt *runtime) close() {
	rt.shutdown.Run()
	rt.stopBackground()
}

func (rt *runtime) stopBackground() {
	rt.stopGroup()
	if err := rt.group.Wait(); err != nil {
		rt.logger.Error("background task failed", "error", err)
	}
}

// validateTopic checks the topic as a publish name or a subscription filter,
// depending on the role.
func validateTopic(cfg *config.Config) error {
	if cfg.Role == config.RoleSubscriber {
		return mqtt.ValidateTopicFilter(cfg.Topic)
	}
	return mqtt.ValidateTopicName(cfg.Topic)
}

// logCredentialError logs a Verify failure the way operators grep for it.
func logCredentialError(logger *logging.Logger, err error) {
	var cerr *credentials.Error
	path := ""
	if errors.As(err, &cerr) {
		path = cerr.Path
	}

	switch {
	case errors.Is(err, credentials.ErrPermissionDenied):
		logger.Error("Certificate file not readable", "path", path)
	default:
		logger.Error("Certificate file not found", "path", path)
	}
}
