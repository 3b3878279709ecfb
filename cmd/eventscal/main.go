package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/saadx01/events-calender/internal/config"
	"github.com/saadx01/events-calender/internal/export"
	appLog "github.com/saadx01/events-calender/internal/log"
	"github.com/saadx01/events-calender/internal/model"
	"github.com/saadx01/events-calender/internal/notes"
	"github.com/saadx01/events-calender/internal/storage"
	"github.com/saadx01/events-calender/internal/upstream"
	"github.com/saadx01/events-calender/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	month      string // YYYY-MM, for --once
	out        string // output file, for --once
	member     string
}

func main() {
	appLog.Info("eventscal starting", "version", "1.2.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"renderer", string(conf.Renderer),
		"refresh", conf.RefreshCron,
		"have_upstream", conf.HasUpstream(),
		"can_write", conf.CanWrite(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	server, cleanup, err := buildServer(conf)
	if err != nil {
		appLog.Error("failed to initialize", err)
		os.Exit(1)
	}
	defer cleanup()

	if flags.once {
		if err := runOnce(ctx, server, flags); err != nil {
			appLog.Error("one-shot export failed", err)
			os.Exit(1)
		}
		return
	}

	// Periodic upstream refresh.
	c := cron.New()
	if conf.HasUpstream() {
		if _, err := c.AddFunc(conf.RefreshCron, func() {
			refreshCtx, refreshCancel := context.WithTimeout(ctx, time.Minute)
			defer refreshCancel()
			if err := server.Refresh(refreshCtx); err != nil {
				appLog.Error("scheduled refresh failed", err)
			}
		}); err != nil {
			appLog.Error("invalid refresh cron spec", err, "spec", conf.RefreshCron)
			os.Exit(1)
		}
		c.Start()
		defer c.Stop()
	}

	httpServer := &http.Server{
		Addr:    conf.Listen,
		Handler: server.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}

	appLog.Info("eventscal exiting")
}

func buildServer(conf *config.Config) (*web.Server, func(), error) {
	prefs, err := storage.New(filepath.Join(conf.DataDir, "prefs.db"), conf.DefaultFontSize)
	if err != nil {
		return nil, nil, fmt.Errorf("open preferences store: %w", err)
	}

	client := upstream.NewClient(conf.RootURL, filepath.Join(conf.DataDir, "upstream-cache"))
	gateway := notes.NewGateway(conf.RootURL, conf.RestNonce)

	var renderer export.Renderer
	switch conf.Renderer {
	case config.RendererRemote:
		renderer = export.NewRemoteRenderer(conf.RenderURL)
	default:
		renderer = &export.LocalRenderer{
			Page: export.PageOptions{
				Width:   conf.PageWidth,
				Height:  conf.PageHeight,
				LogoURL: conf.LogoURL,
			},
		}
	}

	server := web.NewServer(conf, client, gateway, prefs, renderer)
	return server, func() { _ = prefs.Close() }, nil
}

// runOnce builds and exports one month to a file, then exits. Useful
// for cron-driven document generation without the HTTP server.
func runOnce(ctx context.Context, server *web.Server, flags flagConfig) error {
	view, err := parseMonthFlag(flags.month)
	if err != nil {
		return err
	}

	member := flags.member
	if member == "" {
		member = web.DefaultMember
	}

	if err := server.Refresh(ctx); err != nil {
		appLog.Error("refresh failed; exporting last-known-good data", err)
	}

	populated, err := server.BuildGrid(ctx, view, member)
	if err != nil {
		return err
	}

	doc, _, err := server.Renderer().Render(ctx, populated, export.FormatPDF)
	if err != nil {
		return err
	}

	out := flags.out
	if out == "" {
		out = fmt.Sprintf("calendar-%04d-%02d.pdf", view.Year, int(view.Month))
	}
	if err := os.WriteFile(out, doc, 0o644); err != nil {
		return err
	}

	appLog.Info("export written", "path", out, "bytes", len(doc))
	return nil
}

func parseMonthFlag(s string) (model.ViewMonth, error) {
	if s == "" {
		now := time.Now()
		return model.ViewMonth{Year: now.Year(), Month: now.Month()}, nil
	}
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return model.ViewMonth{}, fmt.Errorf("bad -month %q, want YYYY-MM", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return model.ViewMonth{}, fmt.Errorf("bad -month %q, want YYYY-MM", s)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return model.ViewMonth{}, fmt.Errorf("bad -month %q, want YYYY-MM", s)
	}
	return model.ViewMonth{Year: year, Month: time.Month(month)}, nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/eventscal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Export one month to a file and exit")
	flag.StringVar(&cfg.month, "month", "", "Month to export with -once, YYYY-MM (default: current)")
	flag.StringVar(&cfg.out, "out", "", "Output path for -once (default: calendar-YYYY-MM.pdf)")
	flag.StringVar(&cfg.member, "member", "", "Member whose preferences apply with -once")

	flag.Parse()

	return cfg
}
