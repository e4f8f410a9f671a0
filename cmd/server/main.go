// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/FBScrapexter/internal/config"
	"github.com/valpere/FBScrapexter/internal/errors"
	"github.com/valpere/FBScrapexter/pkg/api"
)

// Version information (set by build flags)
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprint(os.Stderr, errors.NewMessageHandler(true).FormatForCLI(err))
		stop()
		os.Exit(errors.ExitCode(err))
	}
}

func newCommand() *cobra.Command {
	var (
		configFile string
		listen     string
		options    = serverOptions{Version: version}
	)
	cmd := &cobra.Command{
		Use:           "fbscrapexter-server",
		Short:         "Serve posts and profiles over HTTP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			cfg.Logging.Format = "json"
			if configFile != "" {
				loaded, err := config.LoadFromFile(configFile)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if options.APIKey == "" {
				options.APIKey = os.Getenv("FBSCRAPEXTER_API_KEY")
			}

			client, err := api.NewScraperClient(cfg)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), listen, newServer(client, options))
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "YAML configuration file")
	f.StringVar(&listen, "listen", ":8080", "address to listen on")
	f.StringVar(&options.APIKey, "api-key", "", "bearer token required by /api/v1 (default $FBSCRAPEXTER_API_KEY)")
	f.Float64Var(&options.RateLimit, "rate-limit", 1, "API requests per second, 0 for no limit")
	f.IntVar(&options.RateBurst, "rate-burst", 5, "API request burst")
	return cmd
}

func serve(ctx context.Context, listen string, s *server) error {
	httpServer := &http.Server{
		Addr:              listen,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Infof("Listening on %s", listen)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
