// Command federkiel-server is the story server: it turns player actions into
// German Harry Potter narration and serves it over HTTP and SSE.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/federkiel/internal/config"
	"github.com/MrWong99/federkiel/internal/observe"
	"github.com/MrWong99/federkiel/internal/resilience"
	"github.com/MrWong99/federkiel/internal/server"
	"github.com/MrWong99/federkiel/internal/story"
	imageprov "github.com/MrWong99/federkiel/pkg/provider/image"
	imageopenai "github.com/MrWong99/federkiel/pkg/provider/image/openai"
	"github.com/MrWong99/federkiel/pkg/provider/image/placeholder"
	speechprov "github.com/MrWong99/federkiel/pkg/provider/speech"
	"github.com/MrWong99/federkiel/pkg/provider/speech/elevenlabs"
	textprov "github.com/MrWong99/federkiel/pkg/provider/text"
	"github.com/MrWong99/federkiel/pkg/provider/text/anyllm"
)

const defaultListenAddr = ":8080"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "federkiel-server: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "federkiel-server: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}

	slog.Info("federkiel-server starting",
		"config", *configPath,
		"listen_addr", addr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownObserve, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "federkiel-server"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	storyProvider, err := newStoryProvider(cfg.Providers.Story)
	if err != nil {
		slog.Error("failed to create story provider", "err", err)
		return 1
	}
	imageProvider, err := newImageProvider(cfg.Providers.Image)
	if err != nil {
		slog.Error("failed to create image provider", "err", err)
		return 1
	}
	speechProvider, err := newSpeechProvider(cfg.Providers.Speech)
	if err != nil {
		slog.Error("failed to create speech provider", "err", err)
		return 1
	}

	opts := []server.Option{
		server.WithUsers(server.ParseUsers(cfg.Server.Users)),
	}
	if cfg.Limits.MaxRequests > 0 {
		opts = append(opts, server.WithLimiter(server.NewLimiter(cfg.Limits.MaxRequests, cfg.Limits.Window)))
	}
	if speechProvider != nil {
		opts = append(opts, server.WithSpeech(speechProvider))
	}

	srv := server.New(story.NewService(storyProvider, imageProvider), opts...)
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: srv.Router(),
	}

	printStartupSummary(cfg, addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down")
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownObserve(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// newStoryProvider builds the narration backend. All supported names go
// through any-llm; ollama is a local server and authenticates with a base URL
// instead of an API key. The provider is wrapped in a circuit breaker so a
// failing model API is not hammered on every turn.
func newStoryProvider(entry config.ProviderEntry) (textprov.Provider, error) {
	if entry.Name == "" {
		return nil, errors.New("providers.story.name is required")
	}
	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	p, err := anyllm.New(entry.Name, entry.Model, opts...)
	if err != nil {
		return nil, err
	}
	return resilience.NewTextFallback(p, entry.Name, resilience.FallbackConfig{}), nil
}

// newImageProvider builds the illustration backend. A real API gets the
// placeholder as its fallback, so a turn never loses its picture to a flaky
// image service.
func newImageProvider(entry config.ProviderEntry) (imageprov.Provider, error) {
	switch entry.Name {
	case "", "placeholder":
		return placeholder.New(), nil
	case "openai":
		var opts []imageopenai.Option
		if entry.Model != "" {
			opts = append(opts, imageopenai.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, imageopenai.WithBaseURL(entry.BaseURL))
		}
		p, err := imageopenai.New(entry.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		fb := resilience.NewImageFallback(p, "openai", resilience.FallbackConfig{})
		fb.AddFallback("placeholder", placeholder.New())
		return fb, nil
	default:
		return nil, fmt.Errorf("unknown image provider %q", entry.Name)
	}
}

// newSpeechProvider returns nil when speech is not configured; the /api/tts
// endpoint then answers 503.
func newSpeechProvider(entry config.SpeechEntry) (speechprov.Provider, error) {
	switch entry.Name {
	case "":
		return nil, nil
	case "elevenlabs":
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if entry.OutputFormat != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(entry.OutputFormat))
		}
		return elevenlabs.New(entry.APIKey, entry.VoiceID, opts...)
	default:
		return nil, fmt.Errorf("unknown speech provider %q", entry.Name)
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, addr string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║       Federkiel — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Story", cfg.Providers.Story.Name, cfg.Providers.Story.Model)
	printProvider("Image", cfg.Providers.Image.Name, cfg.Providers.Image.Model)
	printProvider("Speech", cfg.Providers.Speech.Name, cfg.Providers.Speech.Model)
	if len(cfg.Server.Users) > 0 {
		fmt.Printf("║  Auth            : %-19s ║\n", fmt.Sprintf("%d user(s)", len(cfg.Server.Users)))
	} else {
		fmt.Printf("║  Auth            : %-19s ║\n", "(disabled)")
	}
	if cfg.Limits.MaxRequests > 0 {
		fmt.Printf("║  Rate limit      : %-19s ║\n", fmt.Sprintf("%d per %s", cfg.Limits.MaxRequests, cfg.Limits.Window))
	} else {
		fmt.Printf("║  Rate limit      : %-19s ║\n", "(disabled)")
	}
	fmt.Printf("║  Listen addr     : %-19s ║\n", addr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
