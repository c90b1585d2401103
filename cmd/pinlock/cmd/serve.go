package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jmcleod/pinlock/api"
	"github.com/jmcleod/pinlock/internal/config"
	"github.com/jmcleod/pinlock/internal/util"
	"github.com/jmcleod/pinlock/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		store, closeStore, err := openStore(cfg.Store)
		if err != nil {
			return err
		}
		defer closeStore()

		local, err := newLocalSession(ctx, cfg, store, log)
		if err != nil {
			return fmt.Errorf("failed to open PIN session: %w", err)
		}
		provider, err := newIdentityProvider(cfg.Identity, log)
		if err != nil {
			return err
		}
		gw, closeGateway, err := newGateway(ctx, cfg.Datastore, log)
		if err != nil {
			return fmt.Errorf("failed to open datastore: %w", err)
		}
		defer closeGateway()

		ctrl := session.NewController(local, session.NewAssurance(provider, session.WithAssuranceLogger(log)))
		defer ctrl.Teardown()

		a := api.New(ctrl, gw, api.WithLogger(log))

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(api.RequestLogger(log.WithComponent("http")))
		r.Use(middleware.Recoverer)
		r.Use(api.SecurityHeaders)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Mount("/api/v1", a.Router())

		var tlsConfig *tls.Config
		if cfg.Server.TLS.CertFile != "" && cfg.Server.TLS.KeyFile != "" {
			cert, err := tls.LoadX509KeyPair(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
			if err != nil {
				return fmt.Errorf("failed to load TLS key pair: %w", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		} else {
			cert, err := util.GenerateSelfSignedCert()
			if err != nil {
				return fmt.Errorf("failed to generate self-signed certificate: %w", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
			log.Warn().Msg("using self-signed runtime generated certificate for TLS")
		}

		server := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           r,
			TLSConfig:         tlsConfig,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner(cmd.OutOrStdout())
		log.Info().
			Str("addr", cfg.Server.Addr).
			Str("store", cfg.Store.Driver).
			Str("identity", cfg.Identity.Driver).
			Msg("server started")
		if !cfg.Server.Loopback() {
			log.Warn().Str("addr", cfg.Server.Addr).
				Msg("listening beyond loopback: any client that can reach this address can read unlocked state")
		}

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("server.addr", config.DefaultAddr, "Address to listen on; anything beyond loopback exposes unlocked state to the network")
	serveCmd.Flags().String("server.tls.cert_file", "", "Path to TLS certificate file")
	serveCmd.Flags().String("server.tls.key_file", "", "Path to TLS key file")
	serveCmd.Flags().String("identity.driver", "local", "Identity provider: local or gotrue")
	serveCmd.Flags().String("identity.url", "", "GoTrue auth API root URL")
	serveCmd.Flags().String("datastore.dsn", "", "PostgreSQL DSN for the business tables")
}
