package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/storefront/internal/web"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string

	// Ready is called with the bound address once the listener is open
	// (for testing).
	Ready func(addr string)

	// appOptions overrides parts of the wiring (for testing).
	appOptions appOptions
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}
	return newServeCommand(opts)
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web storefront",
		Long: `Start the HTTP server together with the email queue and the expired
session sweeper. SIGINT or SIGTERM triggers a graceful shutdown bounded by
server.shutdown_timeout.

Example:
  storefront serve --config storefront.yaml
  STOREFRONT_SERVER_ADDR=:8080 storefront serve --db /var/lib/shop.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	aopts := opts.appOptions
	aopts.Queue = true
	a, err := openApp(opts.RootOptions, aopts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error during shutdown: %v\n", closeErr)
		}
	}()

	addr := a.cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	gin.SetMode(gin.ReleaseMode)
	if a.cfg.Session.Secret == "" {
		a.log.Warn("session.secret is not set; sessions will not survive a restart")
	}
	srv, err := web.NewServer(web.Deps{
		Auth:     a.auth,
		Shop:     a.shop,
		Sessions: a.sessions,
		Images:   a.images,
		Metrics:  a.metrics,
		Log:      a.log,
	}, web.Config{
		BaseURL:       a.cfg.Server.BaseURL,
		CSRFKey:       a.csrfKey,
		SecureCookies: a.cfg.Session.Secure,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build web server", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(a.log),
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.queue.Run(gctx)
	})
	g.Go(func() error {
		return a.sessions.Sweep(gctx, a.cfg.Session.SweepInterval)
	})
	g.Go(func() error {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	bound := ln.Addr().String()
	a.log.Info("storefront listening", zap.String("addr", bound), zap.String("db", a.cfg.Database.Path))
	fmt.Fprintf(cmd.OutOrStdout(), "Storefront listening on %s\n", bound)
	if opts.Ready != nil {
		opts.Ready(bound)
	}

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	a.log.Info("storefront stopped gracefully")
	return nil
}
