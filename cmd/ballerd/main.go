// ballerd is a debugging REPL for the baller intent engine. It wires the
// full resolution pipeline (reference-data cache, entity extractor, intent
// processor) and resolves one intent per input line.
//
// Input lines are "user_id: message text"; a line without a colon is
// processed as the default user. The resolved intent is printed as JSON.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ballerhq/baller/internal/config"
	"github.com/ballerhq/baller/internal/conversation"
	"github.com/ballerhq/baller/internal/extract"
	"github.com/ballerhq/baller/internal/footballdata"
	"github.com/ballerhq/baller/internal/intent"
	"github.com/ballerhq/baller/internal/refdata"
	"github.com/ballerhq/baller/internal/storage"
	"github.com/ballerhq/baller/internal/storage/postgres"
	"github.com/ballerhq/baller/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ballerd: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ballerd: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("ballerd exited", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load(), nil
}

func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, snapshotPath, err := openSnapshotStore(cfg.Cache)
	if err != nil {
		return err
	}
	defer store.Close()

	client := footballdata.NewClient(cfg.API.Token,
		footballdata.WithBaseURL(cfg.API.BaseURL),
		footballdata.WithRequestsPerMinute(cfg.API.RequestsPerMinute),
		footballdata.WithClientLogger(logger.Named("footballdata")),
	)

	extractor := extract.New(extract.WithLogger(logger.Named("extract")))

	// The reload hook closes over the cache variable, which is assigned
	// before any load can fire the hook.
	var cache *refdata.Cache
	cache = refdata.NewCache(client, store,
		refdata.WithTTL(cfg.Cache.TTL.Std()),
		refdata.WithLogger(logger.Named("refdata")),
		refdata.WithReloadHook(func() {
			extractor.SetTeams(cache.TeamTable())
		}),
	)

	// Population runs in the background; lookups block on the readiness
	// gate until the first attempt finishes.
	go cache.Initialize(ctx)
	go cache.Run(ctx)

	if cfg.Cache.WatchFile && snapshotPath != "" {
		watcher := refdata.NewSnapshotWatcher(snapshotPath, cache, logger.Named("watcher"))
		if err := watcher.Start(); err != nil {
			logger.Warn("snapshot watcher disabled", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	contexts := conversation.NewStore(cfg.Context.MaxContexts,
		conversation.WithStoreLogger(logger.Named("conversation")))
	processor := intent.NewProcessor(extractor, contexts,
		intent.WithLogger(logger.Named("intent")))

	return repl(ctx, processor)
}

func openSnapshotStore(cfg config.CacheConfig) (storage.SnapshotStore, string, error) {
	switch cfg.Engine {
	case "postgres":
		store, err := postgres.NewSnapshotStore(cfg.PostgresDSN)
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	case "sqlite", "":
		if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
			return nil, "", fmt.Errorf("failed to create data directory: %w", err)
		}
		path := filepath.Join(cfg.DataPath, "refdata.db")
		store, err := sqlite.NewSnapshotStore("file:" + path)
		if err != nil {
			return nil, "", err
		}
		return store, path, nil
	default:
		return nil, "", fmt.Errorf("unknown cache engine %q", cfg.Engine)
	}
}

func repl(ctx context.Context, processor *intent.Processor) error {
	scanner := bufio.NewScanner(os.Stdin)
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	fmt.Println(`ballerd ready - type "user: message" (Ctrl-D to quit)`)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		userID, message := "local", line
		if before, after, found := strings.Cut(line, ":"); found {
			userID, message = strings.TrimSpace(before), strings.TrimSpace(after)
		}

		resolved := processor.ProcessMessage(userID, message)
		if resolved == nil {
			fmt.Println("(no intent detected)")
			continue
		}
		if err := encoder.Encode(resolved); err != nil {
			return err
		}
	}
	return scanner.Err()
}
