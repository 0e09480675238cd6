// Package cmd defines and implements the CLI commands for the siteaudit
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-audit/internal/app"
	"github.com/JakeFAU/site-audit/internal/config"
	"github.com/JakeFAU/site-audit/internal/logging"
	"github.com/JakeFAU/site-audit/internal/telemetry"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

var errNoApp = errors.New("application not initialized")

// newApp is the application factory. It's a variable so tests can point it
// at a temporary storage directory.
var newApp = func(ctx context.Context, cfgFile string) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	tp, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	appInstance, err := app.New(ctx, cfg, app.Options{Logger: logger, TracerProvider: tp})
	if err != nil {
		_ = tp.Shutdown(context.WithoutCancel(ctx))
		return nil, err
	}
	return appInstance, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "siteaudit",
		Short: "Audit crawled pages for missing or malformed titles, headings and descriptions.",
		Long: `siteaudit keeps the registry of monitored sites and judges crawl results
for each page: MIME type, title, H1 and meta description. The registry is
persisted under the per-user data directory; crawl results live in memory.`,
		SilenceUsage: true,

		// Builds the App for every subcommand that needs one; run closes it.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			holder, ok := cmd.Context().Value(appKey).(*appHolder)
			if !ok {
				return errNoApp
			}
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			holder.app = appInstance
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSitesCmd())
	cmd.AddCommand(newAuditCmd())
	return cmd
}

// appHolder carries the App from PersistentPreRunE to the subcommand and
// back to run, which closes it even when the subcommand failed.
type appHolder struct {
	app *app.App
}

func resolveApp(ctx context.Context) (*app.App, error) {
	holder, ok := ctx.Value(appKey).(*appHolder)
	if !ok || holder.app == nil {
		return nil, errNoApp
	}
	return holder.app, nil
}

// Execute is the main entry point.
func Execute() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	holder := &appHolder{}
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(context.WithValue(ctx, appKey, holder))
	if holder.app != nil {
		closeErr := holder.app.Close(context.WithoutCancel(ctx))
		_ = holder.app.Logger().Sync()
		err = errors.Join(err, closeErr)
	}
	if err != nil {
		return fmt.Errorf("siteaudit: %w", err)
	}
	return nil
}
