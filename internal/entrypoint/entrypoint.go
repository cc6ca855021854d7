package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	http_controllers "github.com/mrlokans/librarian/internal/http"
	"github.com/mrlokans/librarian/internal/scheduler"
	"github.com/mrlokans/librarian/internal/tasks"
)

const (
	auditCleanupSchedule = "15 3 * * *"
	rateLimitCleanup     = 5 * time.Minute
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	// Stop background work after in-flight requests have drained.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

// Run starts the HTTP server with every background component and blocks
// until the process is signalled.
func Run(cfg *config.Config, version string) error {
	log.Printf("Starting Librarian v%s", version)

	services, err := NewServices(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := services.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	hasAdmin, err := services.Auth.HasAdmin(context.Background())
	if err != nil {
		return fmt.Errorf("failed to check accounts: %w", err)
	}
	if !hasAdmin {
		log.Printf("No administrator found. Run '%s create-admin --email <address>' to create one.", os.Args[0])
	}

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		handlers := tasks.Handlers{
			Checker:  services.Coordinator,
			Recorder: services.Audit,
			Cleaner:  services.Audit,
		}
		if services.Enricher != nil {
			handlers.Enricher = services.Enricher
		}
		taskClient.RegisterHandlers(handlers)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	sched, err := newScheduler(cfg, services, taskClient)
	if err != nil {
		return err
	}
	schedCtx, schedCancel := context.WithCancel(context.Background())
	sched.Start(schedCtx)

	sessions, err := auth.NewSessionManager(services.DB, cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}

	limiter := auth.NewRateLimiter(cfg.Auth)
	limiter.Start(rateLimitCleanup)

	if cfg.Demo.Enabled {
		log.Printf("Demo mode enabled - write operations will be blocked")
	}

	var csrfSecret []byte
	if cfg.Auth.CSRFEnabled {
		csrfSecret, err = sessionSecret(cfg.Auth)
		if err != nil {
			return err
		}
	} else {
		log.Printf("WARNING: CSRF protection is disabled")
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       services.DB,
		Coordinator:    services.Coordinator,
		Reports:        services.Reports,
		Catalog:        services.Catalog,
		Audit:          services.Audit,
		AuthService:    services.Auth,
		Sessions:       sessions,
		AuthMiddleware: auth.NewMiddleware(services.Auth, sessions),
		RateLimiter:    limiter,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		Version:        version,
		DemoMode:       cfg.Demo.Enabled,
		Enricher:       services.Enricher,
		CoverCache:     services.Covers,
		TaskClient:     taskClient,
	})

	onShutdown := func(ctx context.Context) {
		schedCancel()
		sched.Stop()
		limiter.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
	return nil
}

// newScheduler registers the periodic reconcile and audit cleanup jobs.
// With a task client the jobs only enqueue work; otherwise they run inline.
func newScheduler(cfg *config.Config, services *Services, taskClient *tasks.Client) (*scheduler.Scheduler, error) {
	sched := scheduler.New(5 * time.Minute)

	if cfg.Reconcile.Enabled {
		err := sched.Add(scheduler.Job{
			Name:     "reconcile_inventory",
			Schedule: cfg.Reconcile.Schedule,
			Run: func(ctx context.Context) error {
				if taskClient != nil {
					_, err := taskClient.Enqueue(ctx, tasks.ReconcileInventoryTask{Trigger: "cron"})
					return err
				}
				report, err := services.Coordinator.CheckInventory(ctx)
				services.Audit.LogReconcile(report.Checked, len(report.Mismatches), err)
				return err
			},
		})
		if err != nil {
			return nil, err
		}
	}

	if cfg.Audit.RetentionDays > 0 {
		retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour
		err := sched.Add(scheduler.Job{
			Name:     "cleanup_audit_events",
			Schedule: auditCleanupSchedule,
			Run: func(ctx context.Context) error {
				if taskClient != nil {
					_, err := taskClient.Enqueue(ctx, tasks.CleanupAuditEventsTask{RetentionDays: cfg.Audit.RetentionDays})
					return err
				}
				_, err := services.Audit.DeleteOldEvents(ctx, retention)
				return err
			},
		})
		if err != nil {
			return nil, err
		}
	}

	return sched, nil
}

// sessionSecret returns the configured secret, hex-decoded when possible,
// or a fresh random one.
func sessionSecret(cfg config.Auth) ([]byte, error) {
	if cfg.SessionSecret != "" {
		if secret, err := hex.DecodeString(cfg.SessionSecret); err == nil {
			return secret, nil
		}
		return []byte(cfg.SessionSecret), nil
	}

	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSRF secret: %w", err)
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(secret)
}
