package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"hellotcp/internal/config"
	"hellotcp/internal/logger"
	"hellotcp/internal/microservices/http-api/handler"
	"hellotcp/internal/microservices/tcp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "tcp-server",
		Short: "Listen on port 8080 and log every string clients send",
		Long: `tcp-server accepts TCP connections (port 8080 on all interfaces by default),
decodes whatever bytes arrive as text and logs each decoded chunk together with
the connection it came from. It runs until interrupted.

Settings come from the environment or a .env file (TCP_PORT, CHARSET, LOG_LEVEL, ...).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.ServerAddr()
			}
			return run(cmd.Context(), cfg, addr, logOut)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides TCP_HOST/TCP_PORT")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, addr string, logOut io.Writer) error {
	// Setup structured logging
	log, err := logger.New(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	handlers := []tcp.Handler{tcp.NewLogHandler(log, slog.LevelDebug)}
	if cfg.RedisURL != "" {
		publisher, err := tcp.NewRedisPublisher(cfg.RedisURL, cfg.RedisChannel)
		if err != nil {
			return err
		}
		defer publisher.Close()
		handlers = append(handlers, publisher)
		log.Info("redis_publisher_enabled", "channel", publisher.Channel())
	}

	server, err := tcp.NewServer(tcp.Options{
		Addr:           addr,
		Charset:        cfg.Charset,
		ReadBufferSize: cfg.ReadBufferSize,
		MaxConnections: cfg.MaxConnections,
		AcceptRate:     cfg.AcceptRate,
		AcceptBurst:    cfg.AcceptBurst,
		IdleTimeout:    cfg.IdleTimeout,
		Logger:         log,
	}, handlers...)
	if err != nil {
		return err
	}
	if err := server.Listen(); err != nil {
		return err
	}

	if cfg.AdminAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		admin := &http.Server{
			Addr:              cfg.AdminAddr,
			Handler:           handler.NewRouter(server),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("admin_api_started", "addr", cfg.AdminAddr)
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("admin_api_error", "error", err.Error())
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			admin.Shutdown(shutdownCtx)
		}()
	}

	// blocks until SIGINT/SIGTERM cancels ctx
	if err := server.Serve(ctx); err != nil {
		return err
	}
	log.Info("server_stopped_gracefully")
	return nil
}
