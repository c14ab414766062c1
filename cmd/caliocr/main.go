package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/d90432206-droid/caliocr/internal/config"
	httpapi "github.com/d90432206-droid/caliocr/internal/http"
	"github.com/d90432206-droid/caliocr/internal/logger"
	"github.com/d90432206-droid/caliocr/internal/notify"
	"github.com/d90432206-droid/caliocr/internal/repository"
	"github.com/d90432206-droid/caliocr/internal/service"
	"github.com/d90432206-droid/caliocr/internal/session"
	"github.com/d90432206-droid/caliocr/internal/store"
	"github.com/d90432206-droid/caliocr/internal/workflow"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "caliocr")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// KV：Redis 不可用時退到記憶體（鏡射僅存活於行程內）
	var kv store.KV
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn("Redis unavailable, session mirror falls back to memory", zap.Error(err))
		_ = redisClient.Close()
		redisClient = nil
		kv = store.NewMemoryKV()
	} else {
		kv = store.NewRedisKV(redisClient)
	}

	// 持久層：postgres → sqlite → memory 逐層後援
	var db *sql.DB
	repos := repository.Repositories{
		Records:   repository.NewMemoryRecordsRepository(),
		Templates: repository.NewMemoryTemplatesRepository(),
		Standards: repository.NewMemoryStandardsRepository(),
	}
	if cfg.DBEnabled {
		if d, err := repository.OpenPostgres(cfg.Database.GetDSN()); err == nil {
			db = d
			repos.Records = repository.NewPostgresRecordsRepository(db)
			repos.Templates = repository.NewPostgresTemplatesRepository(db)
			repos.Standards = repository.NewPostgresStandardsRepository(db)
			log.Info("DB enabled for caliocr")
		} else {
			log.Warn("DB enabled but connection failed, falling back to sqlite", zap.Error(err))
		}
	}
	if db == nil {
		if d, err := repository.OpenSQLite(cfg.SQLite.Path); err == nil {
			db = d
			repos.Records = repository.NewSQLiteRecordsRepository(db)
			repos.Templates = repository.NewSQLiteTemplatesRepository(db)
			repos.Standards = repository.NewSQLiteStandardsRepository(db)
			log.Info("using local sqlite fallback", zap.String("path", cfg.SQLite.Path))
		} else {
			log.Warn("sqlite fallback failed, records live in memory only", zap.Error(err))
		}
	}

	// 工作階段：純量欄位自鏡射還原
	mirror := store.NewSessionMirror(kv)
	sessionStore := session.NewStore(context.Background(), session.NewAllocator(), mirror)
	ctrl := workflow.NewController(sessionStore, log)
	submitter := service.NewSubmitter(repos.Records, log)
	vision := service.NewVisionClient(cfg.Vision.BaseURL, cfg.Vision.Keys, cfg.Vision.Models, log)
	if !vision.Enabled() {
		log.Warn("VISION_API_KEYS not set, /api/analyze returns server_error")
	}

	// 提交完成通知（選配）
	var notifier *notify.Notifier
	if cfg.MQTT.Enabled {
		n, err := notify.NewNotifier(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Username, cfg.MQTT.Password, cfg.MQTT.Topic, log)
		if err != nil {
			log.Warn("MQTT broker unavailable, submit notices disabled", zap.Error(err))
		} else {
			notifier = n
		}
	}

	router := httpapi.NewRouter(log)
	router.RegisterWorkflowRoutes(httpapi.NewWorkflowHandler(ctrl, sessionStore, submitter, repos.Templates, notifier, log))
	router.RegisterHistoryRoutes(httpapi.NewHistoryHandler(repos.Records, log))
	router.RegisterPreSetupRoutes(httpapi.NewPreSetupHandler(repos.Templates, repos.Standards, log))
	router.RegisterAnalyzeRoutes(httpapi.NewAnalyzeHandler(vision, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if notifier != nil {
		notifier.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
