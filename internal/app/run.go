// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/toeirei/lingo/internal/logging"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	sessionPurgeInterval   = time.Hour
)

func (a *App) newServer() *http.Server {
	return &http.Server{
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// Run listens on the configured addresses (HTTP, plus HTTPS when a
// certificate is configured, plus the metrics listener) and blocks until ctx is cancelled or a
// listener fails. Shutdown is graceful within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	s := a.Config.Server
	ln, err := net.Listen("tcp", s.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Listen, err)
	}
	var tlsLn net.Listener
	if s.CertFile != "" && s.KeyFile != "" && s.HTTPSListen != "" {
		if tlsLn, err = net.Listen("tcp", s.HTTPSListen); err != nil {
			_ = ln.Close()
			return fmt.Errorf("listen %s: %w", s.HTTPSListen, err)
		}
	}
	var metricsLn net.Listener
	if addr := a.Config.Metrics.Listen; addr != "" {
		if metricsLn, err = net.Listen("tcp", addr); err != nil {
			_ = ln.Close()
			if tlsLn != nil {
				_ = tlsLn.Close()
			}
			return fmt.Errorf("listen %s: %w", addr, err)
		}
	}
	return a.serve(ctx, ln, tlsLn, metricsLn)
}

// Serve serves plain HTTP on ln until ctx is cancelled.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	return a.serve(ctx, ln, nil, nil)
}

func (a *App) serve(ctx context.Context, ln, tlsLn, metricsLn net.Listener) error {
	var servers []*http.Server
	errc := make(chan error, 3)

	srv := a.newServer()
	servers = append(servers, srv)
	logging.Infof("now listening on: http://%s", ln.Addr())
	go func() { errc <- srv.Serve(ln) }()

	if tlsLn != nil {
		tlsSrv := a.newServer()
		servers = append(servers, tlsSrv)
		logging.Infof("now listening on: https://%s", tlsLn.Addr())
		go func() { errc <- tlsSrv.ServeTLS(tlsLn, a.Config.Server.CertFile, a.Config.Server.KeyFile) }()
	}

	if metricsLn != nil {
		metricsSrv := &http.Server{Handler: a.MetricsHandler, ReadHeaderTimeout: 10 * time.Second}
		servers = append(servers, metricsSrv)
		logging.Infof("metrics listening on: http://%s/metrics", metricsLn.Addr())
		go func() { errc <- metricsSrv.Serve(metricsLn) }()
	}

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go a.purgeSessions(purgeCtx, sessionPurgeInterval)

	var runErr error
	select {
	case <-ctx.Done():
		logging.Infof("application is shutting down...")
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, s := range servers {
		if err := s.Shutdown(shutdownCtx); err != nil && runErr == nil {
			runErr = fmt.Errorf("shutdown: %w", err)
		}
	}
	return runErr
}

// purgeSessions removes expired sessions periodically.
func (a *App) purgeSessions(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.Store.PurgeExpiredSessions(ctx, time.Now())
			if err != nil {
				logging.Warnf("purge expired sessions: %v", err)
				continue
			}
			if n > 0 {
				logging.Debugf("purged %d expired session(s)", n)
			}
		}
	}
}
