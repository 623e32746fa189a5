// app/app.go
// Package app assembles the leadcapture service: configuration, logging,
// metrics, the persistence backend, the mailer, optional event publishing and
// geo enrichment, the submission workflow, and the HTTP server.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dalemusser/leadcapture/config"
	"github.com/dalemusser/leadcapture/events"
	"github.com/dalemusser/leadcapture/geo"
	"github.com/dalemusser/leadcapture/guard"
	"github.com/dalemusser/leadcapture/httpapi"
	"github.com/dalemusser/leadcapture/logging"
	"github.com/dalemusser/leadcapture/mailer"
	"github.com/dalemusser/leadcapture/metrics"
	"github.com/dalemusser/leadcapture/notify"
	"github.com/dalemusser/leadcapture/server"
	"github.com/dalemusser/leadcapture/session"
	"github.com/dalemusser/leadcapture/store"
	"github.com/dalemusser/leadcapture/submit"
)

// Run boots the service and blocks until shutdown. It returns a non-nil
// error for startup failures and terminal server errors.
func Run() error {
	boot := logging.BootstrapLogger()

	cfg, err := config.Load(boot)
	if err != nil {
		boot.Error("configuration error", zap.Error(err))
		return err
	}

	logger := logging.MustBuildLogger(cfg.LogLevel, cfg.Env)
	defer func() { _ = logger.Sync() }()

	logger.Debug("effective configuration", zap.String("config", cfg.Dump()))
	metrics.RegisterDefault(logger)

	ctx, cancel := server.WithShutdownSignals(context.Background(), logger)
	defer cancel()

	st, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store init failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}()

	sender := buildMailer(cfg, logger)

	opts := []submit.Option{}

	if cfg.AMQPURL != "" {
		pub, err := events.NewAMQP(cfg.AMQPURL, cfg.AMQPExchange, cfg.DBConnectTimeout)
		if err != nil {
			logger.Error("amqp connect failed", zap.Error(err))
			return err
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("amqp close failed", zap.Error(err))
			}
		}()
		logger.Info("lead-created events enabled", zap.String("exchange", cfg.AMQPExchange))
		opts = append(opts, submit.WithPublisher(pub))
	}

	if cfg.GeoIPDB != "" {
		db, err := geo.Open(cfg.GeoIPDB)
		if err != nil {
			logger.Error("geoip database open failed", zap.String("path", cfg.GeoIPDB), zap.Error(err))
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Warn("geoip close failed", zap.Error(err))
			}
		}()
		logger.Info("country enrichment enabled", zap.String("path", cfg.GeoIPDB))
		opts = append(opts, submit.WithCountryResolver(db))
	}

	g := guard.New(guard.WithCooldown(cfg.SubmitCooldown))
	sess := session.New()
	sub := submit.New(g, st, sender, sess, notify.NewLogNotifier(logger), logger, opts...)

	handler := httpapi.NewHandler(sub, sess, st, logger)

	return server.ListenAndServeWithContext(ctx, cfg, handler.Router(cfg), logger)
}

// buildStore opens the configured persistence backend. Backend names were
// validated during config load.
func buildStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.LeadStore, error) {
	switch cfg.Store.Backend {
	case "memory":
		logger.Info("using in-memory lead store")
		return store.NewMemory(), nil
	case "postgres":
		logger.Info("using postgres lead store")
		return store.NewPostgres(ctx, cfg.Store.PostgresURI, cfg.DBConnectTimeout)
	case "mysql":
		logger.Info("using mysql lead store")
		return store.NewMySQL(ctx, cfg.Store.MySQLDSN, cfg.DBConnectTimeout)
	case "sqlite":
		logger.Info("using sqlite lead store", zap.String("path", cfg.Store.SQLitePath))
		return store.NewSQLite(ctx, cfg.Store.SQLitePath, cfg.DBConnectTimeout)
	case "mongo":
		logger.Info("using mongo lead store", zap.String("db", cfg.Store.MongoDB))
		return store.NewMongo(ctx, cfg.Store.MongoURI, cfg.Store.MongoDB, cfg.DBConnectTimeout)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// buildMailer returns the SMTP sender when a host is configured, otherwise a
// log-only sender so local development works without a mail server.
func buildMailer(cfg *config.Config, logger *zap.Logger) submit.Mailer {
	if cfg.SMTP.Host == "" {
		logger.Info("no smtp host configured; confirmations will be logged")
		return mailer.NewLogSender(logger)
	}
	logger.Info("smtp confirmations enabled",
		zap.String("host", cfg.SMTP.Host),
		zap.Int("port", cfg.SMTP.Port))
	return mailer.NewSMTP(mailer.Config{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		FromAddress: cfg.SMTP.FromAddress,
		FromName:    cfg.SMTP.FromName,
		UseSSL:      cfg.SMTP.UseSSL,
	})
}
