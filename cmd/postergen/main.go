package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"postergen/internal/capture"
	"postergen/internal/config"
	"postergen/internal/export"
	"postergen/internal/ics"
	"postergen/internal/imagegen"
	appLog "postergen/internal/log"
	"postergen/internal/session"
	"postergen/internal/snapshot"
	"postergen/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	input      string
	pngOut     string
	pdfOut     string
	jsonOut    string
	debug      bool
}

func (f flagConfig) oneShot() bool {
	return f.pngOut != "" || f.pdfOut != "" || f.jsonOut != ""
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.debug {
		conf.LogLevel = "debug"
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Info("postergen starting", "version", version)

	loc := resolveLocationOrLocal(conf.ICS.Timezone)

	appLog.Info("effective config",
		"listen", conf.Listen,
		"data_dir", conf.DataDir,
		"timezone", loc.String(),
		"image_generation", conf.ImageGeneration.Enabled(),
		"snapshot_cron", conf.Snapshot.Cron,
		"one_shot", flags.oneShot(),
	)

	sess := newSession(conf, loc)

	if flags.input != "" {
		data, err := os.ReadFile(flags.input)
		if err != nil {
			appLog.Error("failed to read poster document", err, "path", flags.input)
			os.Exit(1)
		}
		if err := sess.Import(data); err != nil {
			appLog.Error("failed to import poster document", err, "path", flags.input)
			os.Exit(1)
		}
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.oneShot() {
		if err := runOnce(ctx, sess, flags); err != nil {
			appLog.Error("export failed", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, conf, sess, loc); err != nil {
		appLog.Error("server error", err)
		os.Exit(1)
	}
	appLog.Info("postergen exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file (created with defaults if missing)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.input, "in", "", "Poster document (JSON) to load at startup")
	flag.StringVar(&cfg.pngOut, "png", "", "Write the poster PNG to this path and exit")
	flag.StringVar(&cfg.pdfOut, "pdf", "", "Write the poster PDF to this path and exit")
	flag.StringVar(&cfg.jsonOut, "json", "", "Write the poster document to this path and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

func newSession(conf *config.Config, loc *time.Location) *session.Session {
	browser := capture.New(conf.Chromium.ExecPath, time.Duration(conf.Chromium.TimeoutSeconds)*time.Second)
	opts := session.Options{
		Exporter:     export.New(browser, browser, conf.Chromium.PNGPixelRatio, conf.Chromium.PDFPixelRatio),
		Fetcher:      ics.NewFetcher(filepath.Join(conf.DataDir, "ics-cache")),
		Location:     loc,
		MaxDimension: conf.Uploads.MaxDimension,
	}
	if conf.ImageGeneration.Enabled() {
		opts.Generator = imagegen.NewGemini(imagegen.Config{
			APIKey:  conf.ImageGeneration.APIKey,
			Model:   conf.ImageGeneration.Model,
			BaseURL: conf.ImageGeneration.BaseURL,
			Prompt:  conf.ImageGeneration.Prompt,
		})
	} else {
		appLog.Warn("image generation disabled, no API key configured")
	}
	return session.New(opts)
}

// runOnce writes the requested files and returns.
func runOnce(ctx context.Context, sess *session.Session, flags flagConfig) error {
	outputs := []struct {
		path   string
		render func(context.Context) ([]byte, error)
	}{
		{flags.jsonOut, func(context.Context) ([]byte, error) { return sess.Export() }},
		{flags.pngOut, sess.ExportPNG},
		{flags.pdfOut, sess.ExportPDF},
	}
	for _, out := range outputs {
		if out.path == "" {
			continue
		}
		data, err := out.render(ctx)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out.path, data, 0o644); err != nil {
			return err
		}
		appLog.Info("file written", "path", out.path, "bytes", len(data))
	}
	return nil
}

// serve runs the HTTP server and the snapshot schedule until ctx is
// cancelled, then shuts both down.
func serve(ctx context.Context, conf *config.Config, sess *session.Session, loc *time.Location) error {
	snaps := snapshot.New(sess, conf.DataDir)
	if err := snaps.Start(ctx, conf.Snapshot.Cron, loc); err != nil {
		return err
	}
	defer snaps.Stop()

	srv := &http.Server{
		Addr: conf.Listen,
		Handler: web.NewServer(web.Options{
			Config:       conf,
			Session:      sess,
			SnapshotPath: snaps.Path(),
			Location:     loc,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Exports and image generation can take a while.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}
