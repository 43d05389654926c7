// Command notepress publishes a notes workspace as a static site.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/notepress/notepress/internal/config"
	apperrors "github.com/notepress/notepress/internal/errors"
	"github.com/notepress/notepress/internal/observability"
	"github.com/notepress/notepress/internal/service"
	"github.com/notepress/notepress/internal/watch"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"notepress.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Init struct {
		Force bool `help:"Overwrite an existing configuration file"`
	} `cmd:"" help:"Write a starter configuration file and prepare the workspace"`

	Scan struct{} `cmd:"" help:"List publishable content without building"`

	Validate struct{} `cmd:"" help:"Validate workspace content without building"`

	Build struct{} `cmd:"" help:"Build the site from the workspace"`

	Deploy struct {
		SkipBuild bool `help:"Republish the most recent successful build instead of rebuilding"`
	} `cmd:"" help:"Build and publish the site to the configured target"`

	Export struct{} `cmd:"" help:"Build and export the site locally (manual-export target)"`

	Status struct{} `cmd:"" help:"Show workspace lifecycle status and build history"`

	Logs struct {
		BuildID string `arg:"" optional:"" help:"Build ID; defaults to the most recent build"`
	} `cmd:"" help:"Show persisted logs for a build"`

	Watch struct{} `cmd:"" help:"Rebuild on workspace changes and deploy on schedule"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("notepress"),
		kong.Description("Publish a notes workspace as a static site."),
	)
	os.Exit(run(kctx.Command()))
}

func run(command string) int {
	if command == "init" {
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			fmt.Fprintln(os.Stderr, "init failed:", err)
			return service.ExitFailure
		}
		fmt.Println("wrote", CLI.Config)
		return service.ExitOK
	}

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return service.ExitFailure
	}

	level := observability.ParseLevel(cfg.Logging.Level)
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	observability.SetupLogging(observability.LogOptions{
		Level:  level,
		Format: observability.LogFormat(cfg.Logging.Format),
	})

	var recorder observability.Recorder = observability.NoopRecorder{}
	registry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		recorder = observability.NewPrometheusRecorder(registry)
	}

	svc, err := service.New(cfg, recorder)
	if err != nil {
		slog.Error("startup failed", "error", err)
		return service.ExitFailure
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "scan":
		return runScan(svc)
	case "validate":
		return runValidate(svc)
	case "build":
		return report(runBuild(ctx, svc))
	case "deploy":
		return report(runDeploy(ctx, svc, CLI.Deploy.SkipBuild))
	case "export":
		if cfg.Deploy.Provider != config.ProviderManualExport {
			fmt.Fprintln(os.Stderr, "export requires deploy.provider: manual-export")
			return service.ExitFailure
		}
		return report(runDeploy(ctx, svc, false))
	case "status":
		return runStatus(svc)
	case "logs", "logs <build-id>":
		return runLogs(ctx, svc, CLI.Logs.BuildID)
	case "watch":
		return runWatch(ctx, cfg, svc, registry)
	}
	fmt.Fprintln(os.Stderr, "unknown command:", command)
	return service.ExitFailure
}

// report prints a classified error's remediation hint before mapping the exit
// code.
func report(err error) int {
	if err == nil {
		return service.ExitOK
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	if ce, ok := apperrors.AsClassified(err); ok && ce.Remediation() != "" {
		fmt.Fprintln(os.Stderr, "hint:", ce.Remediation())
	}
	return service.ExitCode(err)
}

func runScan(svc *service.Service) int {
	summary, err := svc.Scan()
	if err != nil {
		return report(err)
	}
	fmt.Printf("%d publishable files (%d markdown, %d images, %d other), %d bytes\n",
		summary.TotalFiles, summary.MarkdownFiles, summary.ImageFiles, summary.OtherFiles, summary.TotalSize)
	for _, f := range summary.Files {
		fmt.Println(" ", f.RelPath)
	}
	return service.ExitOK
}

func runValidate(svc *service.Service) int {
	result, err := svc.Validate()
	if err != nil {
		return report(err)
	}
	for _, w := range result.WarningStrings() {
		fmt.Println("warning:", w)
	}
	if !result.IsValid {
		for _, e := range result.ErrorStrings() {
			fmt.Println("error:", e)
		}
		fmt.Printf("%d error(s), %d warning(s)\n", len(result.Errors), len(result.Warnings))
		return service.ExitValidationBlocked
	}
	fmt.Printf("valid: %d files, %d warning(s)\n", result.Summary.TotalFiles, len(result.Warnings))
	return service.ExitOK
}

func runBuild(ctx context.Context, svc *service.Service) error {
	rec, err := svc.RequestBuild(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("build %s: %s, %d files, %d bytes in %s\n",
		rec.ID, rec.Status, rec.FilesProcessed, rec.OutputSize, rec.Duration.Round(time.Millisecond))
	return nil
}

func runDeploy(ctx context.Context, svc *service.Service, skipBuild bool) error {
	result, err := svc.RequestDeploy(ctx, skipBuild)
	if err != nil {
		return err
	}
	fmt.Println("published:", result.URL)
	return nil
}

func runStatus(svc *service.Service) int {
	report := svc.Status()
	fmt.Println("workspace:", report.Workspace)
	fmt.Println("status:   ", report.Status)
	fmt.Println("builds:   ", report.Builds)
	if last := report.LastBuild; last != nil {
		fmt.Printf("last build: %s (%s, %d files)\n", last.ID, last.Status, last.FilesProcessed)
	}
	if report.LastDeployAt != nil {
		fmt.Printf("last deploy: %s -> %s\n", report.LastDeployAt.Format(time.RFC3339), report.LastDeployURL)
	}
	return service.ExitOK
}

func runLogs(ctx context.Context, svc *service.Service, buildID string) int {
	lines, err := svc.BuildLogs(ctx, buildID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "reading logs failed:", err)
		return service.ExitFailure
	}
	if len(lines) == 0 {
		fmt.Println("no logs")
		return service.ExitOK
	}
	for _, l := range lines {
		fmt.Printf("%s [%s] %s\n", l.Timestamp.Format(time.RFC3339), l.Level, l.Text)
	}
	return service.ExitOK
}

func runWatch(ctx context.Context, cfg *config.Config, svc *service.Service, registry *prometheus.Registry) int {
	if cfg.Metrics.Enabled && cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			slog.Info("metrics listener started", "addr", cfg.Metrics.Listen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics listener failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	session, err := watch.NewSession(cfg, svc)
	if err != nil {
		slog.Error("watch startup failed", "error", err)
		return service.ExitFailure
	}
	if err := session.Run(ctx); err != nil {
		slog.Error("watch session ended", "error", err)
		return service.ExitFailure
	}
	return service.ExitOK
}
