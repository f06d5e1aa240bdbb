package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/cli/config"
	httpctrl "github.com/secmon-lab/riskdesk/pkg/controller/http"
	"github.com/secmon-lab/riskdesk/pkg/service/worker"
	"github.com/secmon-lab/riskdesk/pkg/usecase"
	"github.com/secmon-lab/riskdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var userHeader string
	var departmentHeader string
	var enableMetrics bool
	var slackLinkInterval time.Duration
	var repoCfg config.Repository
	var dirCfg config.Directory
	var slackCfg config.Slack
	var storageCfg config.Storage

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("RISKDESK_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "user-header",
			Usage:       "Request header carrying the authenticated user ID",
			Value:       httpctrl.DefaultUserHeader,
			Sources:     cli.EnvVars("RISKDESK_USER_HEADER"),
			Destination: &userHeader,
		},
		&cli.StringFlag{
			Name:        "department-header",
			Usage:       "Request header carrying the caller's department (empty to disable)",
			Value:       httpctrl.DefaultDepartmentHeader,
			Sources:     cli.EnvVars("RISKDESK_DEPARTMENT_HEADER"),
			Destination: &departmentHeader,
		},
		&cli.BoolFlag{
			Name:        "metrics",
			Usage:       "Expose Prometheus metrics at /metrics",
			Value:       true,
			Sources:     cli.EnvVars("RISKDESK_METRICS"),
			Destination: &enableMetrics,
		},
		&cli.DurationFlag{
			Name:        "slack-link-interval",
			Usage:       "Interval for linking directory users to Slack accounts by email",
			Value:       time.Hour,
			Category:    "Slack",
			Sources:     cli.EnvVars("RISKDESK_SLACK_LINK_INTERVAL"),
			Destination: &slackLinkInterval,
		},
	}

	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, dirCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			catalog, err := dirCfg.Configure(ctx, repo)
			if err != nil {
				return goerr.Wrap(err, "failed to load directory")
			}

			ucOpts := []usecase.Option{usecase.WithCatalog(catalog)}

			slackSvc, err := slackCfg.Configure()
			if err != nil {
				return err
			}
			if slackSvc != nil {
				ucOpts = append(ucOpts, usecase.WithSlack(slackSvc, slackCfg.ChannelID()))
				logging.Default().Info("Slack notifications enabled", "slack", slackCfg)

				linkWorker, err := worker.NewSlackUserLinkWorker(repo, slackSvc, slackLinkInterval)
				if err != nil {
					return err
				}
				linkWorker.Start(ctx)
				defer linkWorker.Stop()
			} else {
				logging.Default().Info("Slack not configured, intake notifications are disabled")
			}

			docStorage, closeStorage, err := storageCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closeStorage()
			if docStorage != nil {
				ucOpts = append(ucOpts, usecase.WithDocumentStorage(docStorage))
			}

			uc := usecase.New(repo, ucOpts...)

			server := &http.Server{
				Addr: addr,
				Handler: httpctrl.New(uc,
					httpctrl.WithUserHeader(userHeader),
					httpctrl.WithDepartmentHeader(departmentHeader),
					httpctrl.WithMetrics(enableMetrics),
				),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "user_header", userHeader)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logging.Default().Info("Context cancelled, shutting down")
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			// let in-flight notifications finish
			uc.Wait()

			logging.Default().Info("Server shutdown completed")
			return nil
		},
	}
}
