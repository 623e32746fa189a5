// server/server.go
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/acme/autocert"

	"github.com/dalemusser/leadcapture/config"
)

// WithShutdownSignals returns a context that is canceled when the process
// receives SIGINT or SIGTERM. Use it as the parent context for the HTTP
// server. The returned cancel also cleans up the signal handler.
func WithShutdownSignals(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			if logger != nil {
				logger.Info("shutdown signal received", zap.Any("signal", sig))
			}
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// shutdownGrace is how long in-flight requests get to finish on shutdown.
const shutdownGrace = 10 * time.Second

// ListenAndServeWithContext starts an HTTP or HTTPS server (manual certs or
// Let's Encrypt http-01 via autocert) and blocks until the context is
// canceled or the server hits a terminal error. Callers provide a fully
// configured http.Handler.
func ListenAndServeWithContext(
	ctx context.Context,
	cfg *config.Config,
	handler http.Handler,
	logger *zap.Logger,
) error {
	if cfg == nil {
		return fmt.Errorf("ListenAndServeWithContext: cfg is nil")
	}
	if handler == nil {
		return fmt.Errorf("ListenAndServeWithContext: handler is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Route stdlib error logs into zap at Warn level.
	if stdlog, err := zap.NewStdLogAt(logger, zapcore.WarnLevel); err == nil {
		srv.ErrorLog = stdlog
	} else {
		logger.Warn("failed to attach stdlib error logger", zap.Error(err))
	}

	errCh := make(chan error, 2)
	var auxSrv *http.Server // :80 ACME challenge / redirect server

	switch {
	case !cfg.HTTP.UseHTTPS:
		srv.Addr = ":" + strconv.Itoa(cfg.HTTP.HTTPPort)
		logger.Info("starting HTTP server", zap.String("addr", srv.Addr))
		go func() { errCh <- srv.ListenAndServe() }()

	case cfg.TLS.UseLetsEncrypt:
		mgr := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.TLS.Domain),
			Cache:      autocert.DirCache(cfg.TLS.LetsEncryptCacheDir),
			Email:      cfg.TLS.LetsEncryptEmail,
		}
		srv.Addr = ":" + strconv.Itoa(cfg.HTTP.HTTPSPort)
		srv.TLSConfig = &tls.Config{GetCertificate: mgr.GetCertificate, MinVersion: tls.VersionTLS12}

		// :80 serves ACME http-01 challenges and redirects everything else.
		auxSrv = &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.HTTP.HTTPPort),
			Handler:           mgr.HTTPHandler(nil),
			ReadHeaderTimeout: 10 * time.Second,
		}
		logger.Info("starting HTTPS server with Let's Encrypt",
			zap.String("addr", srv.Addr),
			zap.String("domain", cfg.TLS.Domain))
		go func() { errCh <- auxSrv.ListenAndServe() }()
		go func() { errCh <- srv.ListenAndServeTLS("", "") }()

	default:
		srv.Addr = ":" + strconv.Itoa(cfg.HTTP.HTTPSPort)
		logger.Info("starting HTTPS server", zap.String("addr", srv.Addr))
		go func() { errCh <- srv.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile) }()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if auxSrv != nil {
			_ = auxSrv.Shutdown(shutdownCtx)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil

	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
