// Command federkiel is the terminal game client: an interactive German Harry
// Potter text adventure narrated by the story server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrWong99/federkiel/internal/adventure"
	"github.com/MrWong99/federkiel/internal/config"
	"github.com/MrWong99/federkiel/internal/game"
	"github.com/MrWong99/federkiel/internal/speech"
	"github.com/MrWong99/federkiel/internal/stream"
	"github.com/MrWong99/federkiel/pkg/provider/speech/remote"
)

const defaultServerURL = "http://localhost:8080"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	serverURL := flag.String("server", "", "story server URL (overrides the config file)")
	flag.Parse()

	// The client runs fine without a config file; everything has a default.
	cfg, err := config.Load(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg = &config.Config{}
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "federkiel: %v\n", err)
		return 1
	}

	// The terminal belongs to the game; logs go to stderr.
	logger := newLogger(cfg.Client.LogLevel)
	slog.SetDefault(logger)

	baseURL := cfg.Client.ServerURL
	if *serverURL != "" {
		baseURL = *serverURL
	}
	if baseURL == "" {
		baseURL = defaultServerURL
	}

	savePath := cfg.Client.SavePath
	if savePath == "" {
		savePath, err = adventure.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "federkiel: resolve save path: %v\n", err)
			return 1
		}
	}
	store := adventure.NewStore(savePath)
	machine := adventure.NewMachine(store.Load())

	client := stream.NewClient(baseURL, stream.WithPassword(cfg.Client.Password))

	var opts []game.Option
	if cfg.Client.TTS.Enabled {
		voice, err := newVoice(cfg, baseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "federkiel: set up narration: %v\n", err)
			return 1
		}
		opts = append(opts, game.WithVoice(voice))
	}
	orch := game.New(machine, store, client, opts...)

	slog.Debug("client starting", "server", baseURL, "save_path", savePath, "tts", cfg.Client.TTS.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli := game.NewCLI(orch, os.Stdin, os.Stdout)
	if err := cli.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "federkiel: %v\n", err)
		return 1
	}
	return 0
}

// newVoice wires spoken narration: audio comes from the server's /api/tts
// endpoint and is piped into the configured audio player.
func newVoice(cfg *config.Config, baseURL string) (*speech.Player, error) {
	synth, err := remote.New(baseURL, remote.WithPassword(cfg.Client.Password))
	if err != nil {
		return nil, err
	}
	newSink, err := speech.NewExecSinkFactory(cfg.Client.TTS.PlayerCommand)
	if err != nil {
		return nil, err
	}
	return speech.NewPlayer(synth, newSink), nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	// Default to warn: the terminal belongs to the game, not to logs.
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogInfo:
		lvl = slog.LevelInfo
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
