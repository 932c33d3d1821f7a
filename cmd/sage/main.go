// sage is the multi-tenant conversational-agent server: it bridges a
// messaging transport to an LLM reasoning loop over a durable Memory
// Hierarchy and Scheduler.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/sage/pkg/agent"
	"github.com/codeready-toolchain/sage/pkg/agentmanager"
	"github.com/codeready-toolchain/sage/pkg/config"
	"github.com/codeready-toolchain/sage/pkg/database"
	"github.com/codeready-toolchain/sage/pkg/embedding"
	"github.com/codeready-toolchain/sage/pkg/eventloop"
	"github.com/codeready-toolchain/sage/pkg/scheduler"
	"github.com/codeready-toolchain/sage/pkg/searchmcp"
	"github.com/codeready-toolchain/sage/pkg/store"
	"github.com/codeready-toolchain/sage/pkg/transport"
	"github.com/codeready-toolchain/sage/pkg/transport/noopadapter"
	"github.com/codeready-toolchain/sage/pkg/transport/slackadapter"
	"github.com/codeready-toolchain/sage/pkg/vision"
	"github.com/codeready-toolchain/sage/pkg/wakeup"

	modelv1 "github.com/codeready-toolchain/sage/proto"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v (continuing with existing environment)", envPath, err)
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to start sage: %v", err)
	}
	defer app.Close()

	app.scheduler.Start(ctx)
	defer app.scheduler.Stop()

	app.supervisor.Start(ctx)
	defer app.supervisor.Stop()

	if app.wakeupListener != nil {
		if err := app.wakeupListener.Start(ctx); err != nil {
			log.Printf("warning: wakeup listener failed to start, scheduler falls back to polling only: %v", err)
		} else {
			defer app.wakeupListener.Stop(context.Background())
		}
	}

	go func() {
		if err := app.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("event loop exited with error: %v", err)
		}
	}()

	httpPort := getEnv("HEALTH_PORT", cfg.HealthPort)
	router := gin.Default()
	router.GET("/health", app.healthHandler)
	server := &http.Server{Addr: ":" + httpPort, Handler: router}

	go func() {
		log.Printf("health endpoint listening on :%s", httpPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("health server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("health server shutdown error: %v", err)
	}
}

// application bundles every long-lived dependency main needs to start,
// stop, and health-check.
type application struct {
	db             *database.Client
	llm            *agent.GRPCLLMClient
	embed          embedding.Client
	vis            *vision.Preprocessor
	webSearch      *searchmcp.Client
	scheduler      *scheduler.Scheduler
	agents         *agentmanager.Manager
	loop           *eventloop.Loop
	supervisor     *transport.Supervisor
	wakeupListener *wakeup.Listener
}

// Close releases every dial/connection application opened. Safe to call on
// a partially-constructed application.
func (a *application) Close() {
	if a.webSearch != nil {
		_ = a.webSearch.Close()
	}
	if a.vis != nil {
		_ = a.vis.Close()
	}
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if c, ok := a.embed.(interface{ Close() error }); ok && c != nil {
		_ = c.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *application) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(reqCtx, a.db.DB())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": dbHealth, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": dbHealth})
}

// bootstrap wires every dependency in the order the teacher's cmd/tarsy
// follows: database, model clients, domain services, then the transport
// and event loop that sit on top of them.
func bootstrap(ctx context.Context, cfg *config.Config) (*application, error) {
	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	log.Println("connected to database, migrations applied")

	app := &application{db: dbClient}

	s := store.New(dbClient.Client, dbClient.DB())

	embedClient, err := embedding.NewGRPCClient(cfg.Embedding.APIURL, cfg.Embedding)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.embed = embedClient

	llmClient, err := agent.NewGRPCLLMClient(cfg.LLM.APIURL, &modelv1.LLMConfig{
		APIURL: cfg.LLM.APIURL, APIKey: cfg.LLM.APIKey, Model: cfg.LLM.Model,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.llm = llmClient

	var visPre *vision.Preprocessor
	if cfg.Vision.Model != "" {
		visPre, err = vision.NewGRPCPreprocessor(cfg.Vision.APIURL, cfg.Vision)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.vis = visPre
		log.Println("vision pre-processing enabled")
	}

	var webSearch *searchmcp.Client
	if cfg.WebSearch.Enabled() {
		webSearch, err = searchmcp.NewClientFactory(cfg.WebSearch.Transport).CreateClient(ctx)
		if err != nil {
			log.Printf("warning: web_search tool disabled, MCP server unreachable: %v", err)
		} else {
			app.webSearch = webSearch
			log.Println("web_search tool enabled")
		}
	}

	sched := scheduler.New(s.Tasks, cfg.Scheduler)
	app.scheduler = sched

	agents := agentmanager.New(agentmanager.Opts{
		Store:         s,
		Embed:         embedClient,
		LLM:           llmClient,
		MemoryConfig:  cfg.Memory,
		WorkspacePath: cfg.WorkspacePath,
		WebSearch:     app.webSearch,
		Waker:         sched,
	})
	app.agents = agents

	var adapter transport.Adapter
	switch cfg.Messenger {
	case config.MessengerSlack:
		adapter = slackadapter.New(slackadapter.Config{BotToken: cfg.SlackBotToken, AppToken: cfg.SlackAppToken})
	default:
		adapter = noopadapter.New()
	}
	app.supervisor = transport.NewSupervisor(adapter)

	app.loop = eventloop.New(eventloop.Opts{
		Transport: adapter,
		Agents:    agents,
		Scheduler: sched,
		Store:     s,
		Config:    cfg,
		Vision:    app.vis,
	})

	if cfg.DatabaseURL != "" {
		app.wakeupListener = wakeup.New(cfg.DatabaseURL, sched)
	}

	return app, nil
}
