// cmd/assistant/main.go
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	llmcompletion "garage-assistant/internal/assistant/llm-completion"
	"garage-assistant/internal/assistant/orchestrator"
	retrievecontext "garage-assistant/internal/assistant/retrieve-context"
	websearch "garage-assistant/internal/assistant/web-search"
	"garage-assistant/internal/common/config"
	"garage-assistant/internal/common/database"
	apphttp "garage-assistant/internal/common/http"
	"garage-assistant/internal/common/logger"
	"garage-assistant/internal/common/observability"
	"garage-assistant/internal/common/tracing"
	"garage-assistant/internal/models"
)

// request is one stdin line.
type request struct {
	Question string `json:"question"`
	Role     string `json:"role,omitempty"`
	Level    string `json:"level,omitempty"`
}

func main() {
	question := flag.String("question", "", "answer a single question and exit")
	role := flag.String("role", "", "caller role: admin, mechanic or client")
	level := flag.String("level", "", "experience level: beginner, intermediate or expert")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	// stdout carries answers, so logs go to stderr
	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, "stderr")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting garage assistant...", zap.String("environment", cfg.App.Environment))

	knowledge, err := config.LoadKnowledge(cfg.Assistant.KnowledgePath)
	if err != nil {
		zapLog.Fatal("knowledge load failed", zap.Error(err))
	}

	shutdownTracing, err := tracing.Initialize(cfg.Tracing, log)
	if err != nil {
		zapLog.Fatal("tracing init failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeDeps := buildDependencies(ctx, cfg, log, zapLog)
	defer closeDeps()
	deps.Observability = obs

	assistant, err := orchestrator.New(orchestrator.LoadConfig(cfg, knowledge), deps, log)
	if err != nil {
		zapLog.Fatal("orchestrator init failed", zap.Error(err))
	}

	server := startHealthServer(cfg.Server.Address, zapLog)

	if *question != "" {
		answer := assistant.Answer(ctx, models.NewQuestion(*question, *role, *level))
		if err := json.NewEncoder(os.Stdout).Encode(answer); err != nil {
			zapLog.Error("write answer failed", zap.Error(err))
		}
	} else {
		serveLines(ctx, assistant, os.Stdin, os.Stdout, zapLog)
	}

	zapLog.Info("Shutdown signal received, stopping assistant...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zapLog.Error("Error flushing traces", zap.Error(err))
	}
	zapLog.Info("Garage assistant stopped gracefully")
}

// buildDependencies connects the configured backends. The record store and
// the search index are optional: a failed connection disables them instead
// of aborting startup.
func buildDependencies(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger) (orchestrator.Dependencies, func()) {
	var deps orchestrator.Dependencies
	var closers []func()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err := database.RetryWithBackoff(ctx, func(ctx context.Context) error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return err
		}
		return nil
	}, 5, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Warn("postgres unavailable, database lookups disabled", zap.Error(err))
	} else {
		closers = append(closers, func() { pg.Close() })
		deps.Store = retrievecontext.NewPostgresStore(pg.DB)
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Init Elasticsearch with retry ---
	if cfg.Assistant.SearchIndex.Enabled {
		var es *database.ElasticsearchClient
		err := database.RetryWithBackoff(ctx, func(ctx context.Context) error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 5, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, repair notes disabled", zap.Error(err))
		} else {
			deps.Index = retrievecontext.NewESIndexSearcher(es.Client, cfg.Assistant.SearchIndex.Index)
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- Init Redis with retry ---
	searchCfg := websearch.LoadConfig(cfg)
	if cfg.APIs.WebSearch.CacheBackend == "redis" {
		rdb := database.NewRedis(cfg.Database.Redis)
		err := database.RetryWithBackoff(ctx, rdb.Ping, 5, 2*time.Second, log, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, using in-memory search cache", zap.Error(err))
			rdb.Close()
		} else {
			closers = append(closers, func() { rdb.Close() })
			deps.SearchCache = websearch.NewRedisCache(rdb.Client, searchCfg.CacheTTL, nil, log)
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Init external providers ---
	searchProvider, err := websearch.NewProvider(searchCfg, apphttp.NewClient(searchCfg.Timeout))
	if err != nil {
		zapLog.Warn("web search disabled", zap.Error(err))
	} else {
		deps.SearchProvider = searchProvider
	}

	llmCfg := llmcompletion.LoadConfig(cfg)
	llmProvider, err := llmcompletion.NewProvider(llmCfg, apphttp.NewClient(llmCfg.Timeout))
	if err != nil {
		zapLog.Warn("llm disabled, answers will be evidence-only", zap.Error(err))
	} else {
		deps.LLMProvider = llmProvider
	}

	return deps, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

// serveLines answers one JSON request per input line until EOF or shutdown.
// A line that is not JSON is taken as the question text.
func serveLines(ctx context.Context, assistant *orchestrator.Orchestrator, in io.Reader, out io.Writer, zapLog *zap.Logger) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			zapLog.Error("read stdin failed", zap.Error(err))
		}
	}()

	enc := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			req, skip := parseRequest(line)
			if skip {
				continue
			}
			answer := assistant.Answer(ctx, models.NewQuestion(req.Question, req.Role, req.Level))
			if err := enc.Encode(answer); err != nil {
				zapLog.Error("write answer failed", zap.Error(err))
				return
			}
		}
	}
}

func parseRequest(line string) (request, bool) {
	var req request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		req = request{Question: line}
	}
	req.Question = models.NewQuestion(req.Question, "", "").Text
	return req, req.Question == ""
}

func startHealthServer(addr string, zapLog *zap.Logger) *http.Server {
	if addr == "" {
		addr = ":8080"
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()
	return server
}
