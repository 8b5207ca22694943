package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"hellotcp/internal/config"
	"hellotcp/internal/logger"
	"hellotcp/internal/microservices/tcp"
)

func main() {
	if err := newRootCmd(os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	var (
		addr    string
		message string
	)

	cmd := &cobra.Command{
		Use:   "tcp-client",
		Short: `Connect to 127.0.0.1:8080, send "hello world." and exit`,
		Long: `tcp-client opens one TCP connection to the server, writes a single string
and flushes it. Nothing is read back.

Settings come from the environment or a .env file (TCP_PORT, CLIENT_HOST,
CLIENT_MESSAGE, CHARSET, DIAL_TIMEOUT, ...).`,
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
			log, err := logger.New(logOut, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(log)

			if addr == "" {
				addr = cfg.ClientAddr()
			}
			// --message "" is a valid choice, so only fall back when the flag is absent
			if !cmd.Flags().Changed("message") {
				message = cfg.ClientMessage
			}
			return send(cmd.Context(), addr, message, tcp.ClientOptions{
				Charset:     cfg.Charset,
				DialTimeout: cfg.DialTimeout,
				Logger:      log,
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "server address, overrides CLIENT_HOST/TCP_PORT")
	cmd.Flags().StringVarP(&message, "message", "m", tcp.DefaultMessage, "string to send")
	return cmd
}

func send(ctx context.Context, addr, message string, opts tcp.ClientOptions) error {
	if err := tcp.SendOnce(ctx, addr, message, opts); err != nil {
		return err
	}
	opts.Logger.Info("message_sent", "addr", addr, "message", message)
	return nil
}
