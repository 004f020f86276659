package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"docinsight-backend/internal/chat"
	"docinsight-backend/internal/dashboard"
	"docinsight-backend/internal/documents"
	"docinsight-backend/internal/extractions"
	"docinsight-backend/internal/llm"
	"docinsight-backend/internal/llm/langchain"
	"docinsight-backend/internal/llm/openai"
	"docinsight-backend/internal/pages"
	"docinsight-backend/internal/processing"
	"docinsight-backend/internal/reports"
	"docinsight-backend/internal/services/health"
	"docinsight-backend/internal/shared/config"
	"docinsight-backend/internal/shared/resilience"
	"docinsight-backend/internal/shared/server"
	"docinsight-backend/internal/shared/storage/db"
	"docinsight-backend/internal/shared/storage/object"
	localstore "docinsight-backend/internal/shared/storage/object/local"
	s3store "docinsight-backend/internal/shared/storage/object/s3"
	"docinsight-backend/internal/shared/telemetry"
	"docinsight-backend/internal/users"
)

// App holds shared dependencies and the router built from them.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	DocumentsRepo   documents.Repo
	PagesRepo       pages.Repo
	ExtractionsRepo extractions.Repo
	ChatRepo        chat.Repo
	UsersRepo       users.Repo

	Assistant        *llm.Assistant
	Processor        *processing.Processor
	DocumentsService *documents.Service
	ChatService      *chat.Service
	DashboardService *dashboard.Service
	ReportsService   *reports.Service
	UsersService     *users.Service
	HealthService    *health.Service
}

// Options lets callers swap infrastructure, mostly for tests.
type Options struct {
	DB        *sql.DB
	Store     object.ObjectStore
	LLMClient llm.Client
}

// Build prepares dependencies and the router from configuration.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	return BuildWith(ctx, cfg, Options{})
}

// BuildWith is Build with injected infrastructure. Zero fields are built from cfg.
func BuildWith(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB := opts.DB
	if sqlDB == nil {
		var err error
		if sqlDB, err = buildDB(ctx, cfg); err != nil {
			return nil, err
		}
	}

	store := opts.Store
	if store == nil {
		var err error
		if store, err = buildStore(ctx, cfg); err != nil {
			return nil, err
		}
	}

	client := opts.LLMClient
	if client == nil {
		var err error
		if client, err = BuildLLM(ctx, cfg); err != nil {
			return nil, err
		}
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}
	app.buildRepos()
	app.buildServices(client)
	app.Router = server.NewRouter(server.RouterDeps{
		Config:    cfg,
		Health:    health.NewHandler(app.HealthService),
		Users:     users.NewHandler(app.UsersService),
		Documents: documents.NewHandler(app.DocumentsService),
		Chat:      chat.NewHandler(app.ChatService),
		Dashboard: dashboard.NewHandler(app.DashboardService),
		Reports:   reports.NewHandler(app.ReportsService),
	})
	return app, nil
}

// Close waits for in-flight processing and releases the database pool.
func (a *App) Close() error {
	if a.Processor != nil {
		a.Processor.Wait()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			sqlDB.Close()
			err = fmt.Errorf("run migrations: %w", err)
		}
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "database unavailable", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// BuildLLM returns nil when no provider is configured; callers then run on
// the rule-based pipeline and citation search only.
func BuildLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	var (
		base llm.Client
		err  error
	)
	switch cfg.LLMProvider {
	case "openai":
		base, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	case "gemini":
		base, err = langchain.NewGemini(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
	case "ollama":
		base, err = langchain.NewOllama(cfg.OllamaURL, cfg.LLMModel)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("llm provider %s: %w", cfg.LLMProvider, err)
	}
	return llm.NewResilient(base, resilience.DefaultPolicy(), cfg.LLMTimeout), nil
}

func (a *App) buildRepos() {
	if a.DB != nil {
		a.DocumentsRepo = &documents.PGRepo{DB: a.DB}
		a.PagesRepo = &pages.PGRepo{DB: a.DB}
		a.ExtractionsRepo = &extractions.PGRepo{DB: a.DB}
		a.ChatRepo = &chat.PGRepo{DB: a.DB}
		a.UsersRepo = &users.PGRepo{DB: a.DB}
		return
	}
	a.DocumentsRepo = documents.NewMemoryRepo()
	a.PagesRepo = pages.NewMemoryRepo()
	a.ExtractionsRepo = extractions.NewMemoryRepo()
	a.ChatRepo = chat.NewMemoryRepo()
	a.UsersRepo = users.NewMemoryRepo()
}

func (a *App) buildServices(client llm.Client) {
	cfg := a.Config
	if client != nil {
		a.Assistant = &llm.Assistant{Client: client, MaxContextTokens: cfg.LLMMaxContextTokens}
	}

	a.DashboardService = dashboard.NewService(a.DocumentsRepo, a.PagesRepo, a.ChatRepo, cfg.StatsCacheTTL)
	invalidate := a.DashboardService.Invalidate

	a.Processor = &processing.Processor{
		Docs:        a.DocumentsRepo,
		Pages:       a.PagesRepo,
		Extractions: a.ExtractionsRepo,
		Store:       a.Store,
		Assistant:   a.Assistant,
		Stages:      processing.DefaultStages(),
		OnChange:    invalidate,
	}
	a.ChatService = &chat.Service{
		Repo:        a.ChatRepo,
		Docs:        a.DocumentsRepo,
		Pages:       a.PagesRepo,
		Extractions: a.ExtractionsRepo,
		Assistant:   a.Assistant,
		OnChange:    invalidate,
	}
	a.DocumentsService = &documents.Service{
		Store:          a.Store,
		Repo:           a.DocumentsRepo,
		Pages:          a.PagesRepo,
		Extractions:    a.ExtractionsRepo,
		Chat:           a.ChatService,
		Runner:         a.Processor,
		MaxUploadBytes: cfg.MaxUploadBytes,
		OnChange:       invalidate,
	}
	a.ReportsService = &reports.Service{Docs: a.DocumentsRepo, Extractions: a.ExtractionsRepo}
	a.UsersService = users.NewService(a.UsersRepo)
	a.HealthService = health.NewService(a.DB)
}
