package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/modelrelay/modelrelay/pkg/config"
	"github.com/modelrelay/modelrelay/pkg/logutil"
	"github.com/modelrelay/modelrelay/pkg/modelmap"
	"github.com/modelrelay/modelrelay/pkg/proxy"
)

var (
	serveConfigPath          string
	serveListenAddrOverride  string
	serveUpstreamURLOverride string
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the proxy server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefaultServerConfig(serveConfigPath)
			if err != nil {
				return fmt.Errorf("load server config: %w", err)
			}
			if cmd.Flags().Changed("listen-addr") {
				cfg.ListenAddr = serveListenAddrOverride
			}
			if cmd.Flags().Changed("upstream-url") {
				cfg.UpstreamURL = serveUpstreamURLOverride
			}
			cfg.Normalize()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := logutil.Configure(cfg.LogLevel); err != nil {
				return err
			}

			// Model map failures are never fatal: the proxy degrades to
			// identity resolution.
			models, err := modelmap.Load(cfg.ModelMapPath)
			if err != nil {
				log.Warn("model map unavailable, resolving names verbatim", "path", cfg.ModelMapPath, "err", err)
			}

			srv := proxy.NewServer(cfg, models)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.Run(ctx)
		},
	}
	serveCmd.Flags().StringVar(&serveConfigPath, "config", config.DefaultServerConfigPath(), "Server config TOML path")
	serveCmd.Flags().StringVar(&serveListenAddrOverride, "listen-addr", "", "Override listen address from config (e.g. 127.0.0.1:8000)")
	serveCmd.Flags().StringVar(&serveUpstreamURLOverride, "upstream-url", "", "Override upstream chat-completions URL from config")
	rootCmd.AddCommand(serveCmd)
}
