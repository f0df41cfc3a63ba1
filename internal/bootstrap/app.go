package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"

	"proposal-backend/internal/documents"
	"proposal-backend/internal/history"
	"proposal-backend/internal/llm"
	openai "proposal-backend/internal/llm/openai"
	"proposal-backend/internal/progress"
	"proposal-backend/internal/session"
	"proposal-backend/internal/shared/config"
	"proposal-backend/internal/shared/server"
	"proposal-backend/internal/shared/storage/db"
	"proposal-backend/internal/shared/storage/object"
	localstore "proposal-backend/internal/shared/storage/object/local"
	s3store "proposal-backend/internal/shared/storage/object/s3"
)

const resultCacheSize = 128

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	Hub       *progress.Hub
	Bus       *progress.Bus
	Announcer *progress.Announcer

	DocumentsRepo documents.Repo
	HistoryRepo   history.Repo

	DocumentsService *documents.Service
	SessionService   *session.Service
	HistoryService   *history.Service

	DocumentsHandler *documents.Handler
	SessionHandler   *session.Handler
	HistoryHandler   *history.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Store:     store,
		Hub:       progress.NewHub(),
		Bus:       progress.NewBus(),
		Announcer: progress.NewAnnouncer(progress.DefaultAnnouncementLimit, progress.DefaultAnnouncementTTL),
	}
	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		SessionHandler:   app.SessionHandler,
		DocumentsHandler: app.DocumentsHandler,
		HistoryHandler:   app.HistoryHandler,
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(app *App) error {
	var docRepo documents.Repo
	var historyRepo history.Repo
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		historyRepo = &history.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		historyRepo = history.NewMemoryRepo()
	}
	app.DocumentsRepo = docRepo
	app.HistoryRepo = historyRepo

	app.DocumentsService = &documents.Service{
		Store: app.Store,
		Repo:  docRepo,
		Bus:   app.Bus,
	}

	llmClient := llm.Client(llm.PlaceholderClient{})
	if app.Config.LLMProvider == "openai" {
		apiKey := os.Getenv("OPENAI_API_KEY")
		if strings.TrimSpace(apiKey) == "" && isDevLike(app.Config.Env) {
			log.Printf("bootstrap: OPENAI_API_KEY empty; using placeholder LLM client")
		} else {
			client, err := openai.NewClient(apiKey, app.Config.AnalysisModel)
			if err != nil {
				return err
			}
			llmClient = client
		}
	}

	cache, err := lru.New[string, session.CachedResults](resultCacheSize)
	if err != nil {
		return err
	}
	app.SessionService = &session.Service{
		Sessions:  session.NewStore(),
		Docs:      app.DocumentsService,
		LLM:       llmClient,
		Reporter:  app.Hub,
		Bus:       app.Bus,
		Announcer: app.Announcer,
		Results:   cache,
		DefaultModels: session.SelectedModels{
			Analysis:   app.Config.AnalysisModel,
			Comparison: app.Config.ComparisonModel,
		},
	}

	app.HistoryService = &history.Service{
		Repo:     historyRepo,
		Sessions: app.SessionService,
		Docs:     app.DocumentsService,
		Bus:      app.Bus,
	}

	app.DocumentsHandler = documents.NewHandler(app.DocumentsService)
	app.SessionHandler = session.NewHandler(app.SessionService, app.Hub)
	app.HistoryHandler = history.NewHandler(app.HistoryService)
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
