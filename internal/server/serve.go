package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"relaydash/internal/config"
)

const shutdownGrace = 10 * time.Second

// Serve runs the dashboard until ctx is cancelled, then drains in-flight
// requests. TLS is used when the config names both a certificate and a key.
func Serve(ctx context.Context, cfg config.Config) error {
	s := New(cfg)
	defer s.Close()

	hs := &http.Server{
		Addr:              cfg.Bind,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLSEnabled() {
			s.log.Info().Str("addr", cfg.Bind).Str("devices", cfg.DevicesPath).Msg("relaydash listening (tls)")
			errCh <- hs.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
			return
		}
		s.log.Info().Str("addr", cfg.Bind).Str("devices", cfg.DevicesPath).Msg("relaydash listening")
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return hs.Shutdown(shutdownCtx)
}
