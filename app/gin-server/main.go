package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/yoointerview/config"
	"github.com/yoockh/yoointerview/internal/api/handlers"
	"github.com/yoockh/yoointerview/internal/api/middleware"
	"github.com/yoockh/yoointerview/internal/api/routes"
	"github.com/yoockh/yoointerview/internal/cache"
	"github.com/yoockh/yoointerview/internal/consistency"
	"github.com/yoockh/yoointerview/internal/database"
	"github.com/yoockh/yoointerview/internal/events"
	"github.com/yoockh/yoointerview/internal/lifecycle"
	"github.com/yoockh/yoointerview/internal/lock"
	"github.com/yoockh/yoointerview/internal/logger"
	"github.com/yoockh/yoointerview/internal/providers/ai"
	"github.com/yoockh/yoointerview/internal/providers/llm"
	"github.com/yoockh/yoointerview/internal/providers/stt"
	"github.com/yoockh/yoointerview/internal/repositories/memory"
	mongorepo "github.com/yoockh/yoointerview/internal/repositories/mongo"
	pgrepo "github.com/yoockh/yoointerview/internal/repositories/postgres"
	"github.com/yoockh/yoointerview/internal/services"
	"github.com/yoockh/yoointerview/internal/storage"
	"github.com/yoockh/yoointerview/internal/workers"
)

type repositories struct {
	users     pgrepo.UserRepository
	links     pgrepo.TeacherStudentRepository
	profiles  pgrepo.ProfileRepository
	sessions  pgrepo.SessionRepository
	questions pgrepo.QuestionRepository
	feedback  pgrepo.FeedbackRepository
	analytics pgrepo.AnalyticsRepository
	progress  pgrepo.ProgressRepository
	stats     pgrepo.TeacherStatsRepository
	audit     mongorepo.SecurityAuditRepository
}

func openRepositories(s *config.Settings, log *logrus.Logger) (*repositories, error) {
	if s.Database.Driver == "memory" {
		log.Warn("using in-memory storage; data is lost on restart")
		st := memory.NewStore()
		return &repositories{
			users:     st.Users(),
			links:     st.TeacherStudents(),
			profiles:  st.Profiles(),
			sessions:  st.Sessions(),
			questions: st.Questions(),
			feedback:  st.Feedback(),
			analytics: st.Analytics(),
			progress:  st.Progress(),
			stats:     st.TeacherStats(),
			audit:     st.SecurityAudit(),
		}, nil
	}

	if s.Database.AutoMigrate {
		dsn, err := config.PostgresURI()
		if err != nil {
			return nil, err
		}
		m, err := database.NewMigrator(dsn, s.Database.MigrationsDir)
		if err != nil {
			return nil, err
		}
		upErr := m.Up()
		version, dirty, verErr := m.Version()
		if err := errors.Join(upErr, verErr, m.Close()); err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("migrations applied")
	}
	if err := config.InitPostgres(); err != nil {
		return nil, err
	}
	log.Info("PostgreSQL connected")

	db := config.PostgresDB
	r := &repositories{
		users:     pgrepo.NewUserRepo(db),
		links:     pgrepo.NewTeacherStudentRepo(db),
		profiles:  pgrepo.NewProfileRepo(db),
		sessions:  pgrepo.NewSessionRepo(db),
		questions: pgrepo.NewQuestionRepo(db),
		feedback:  pgrepo.NewFeedbackRepo(db),
		analytics: pgrepo.NewAnalyticsRepo(db),
		progress:  pgrepo.NewProgressRepo(db),
		stats:     pgrepo.NewTeacherStatsRepo(db),
	}

	if config.MongoConfigured() {
		if err := config.InitMongo(); err != nil {
			return nil, err
		}
		if err := config.EnsureMongoIndexes(); err != nil {
			return nil, err
		}
		mdb, err := config.MongoDatabase()
		if err != nil {
			return nil, err
		}
		r.audit = mongorepo.NewSecurityAuditRepo(mdb)
		log.Info("MongoDB connected")
	} else {
		log.Warn("MONGO_URI not set; security audit trail disabled")
	}
	return r, nil
}

// primaryCollaborator returns nil when Vertex is not configured, which leaves
// the deterministic fallbacks in charge.
func primaryCollaborator(ctx context.Context, s *config.Settings, log *logrus.Logger) (ai.Collaborator, func()) {
	if s.AI.ProjectID == "" {
		log.Warn("ai.project_id not set; using fallback questions, scoring and feedback")
		return nil, func() {}
	}
	v, err := llm.NewVertexGemini(ctx, s.AI.ProjectID, s.AI.Location, s.AI.Model)
	if err != nil {
		log.WithError(err).Warn("vertex init failed; using fallbacks")
		return nil, func() {}
	}
	return ai.NewGemini(v), func() { _ = v.Close() }
}

// runMigrate handles `migrate up|down|force <version>`.
func runMigrate(s *config.Settings, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: migrate up|down|force <version>")
	}
	dsn, err := config.PostgresURI()
	if err != nil {
		return err
	}
	m, err := database.NewMigrator(dsn, s.Database.MigrationsDir)
	if err != nil {
		return err
	}
	defer m.Close()

	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "force":
		if len(args) < 2 {
			return errors.New("usage: migrate force <version>")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		return m.Force(v)
	default:
		return fmt.Errorf("unknown migrate command %q", args[0])
	}
}

func main() {
	_ = godotenv.Load()
	log := logger.New()

	settings, err := config.LoadSettings()
	if err != nil {
		log.WithError(err).Fatal("config load error")
	}

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(settings, os.Args[2:]); err != nil {
			log.WithError(err).Fatal("migrate failed")
		}
		log.Info("migrate done")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(settings, log)
	if err != nil {
		log.WithError(err).Fatal("storage init error")
	}

	var (
		locker lock.Locker = lock.NewLocal()
		store  cache.Cache = cache.Noop{}
		queue  *workers.StreamQueue
	)
	if config.RedisConfigured() {
		if err := config.InitRedis(); err != nil {
			log.WithError(err).Fatal("Redis init error")
		}
		log.Info("Redis connected")
		locker = lock.NewRedis(config.RedisClient, "yoointerview:lock:", settings.Aggregates.LockTTL)
		store = cache.NewRedisCache(config.RedisClient, "yoointerview")
		queue = &workers.StreamQueue{Redis: config.RedisClient}
	}
	mode := services.RecomputeMode(settings.Aggregates.Mode)
	if mode == services.ModeAsync && queue == nil {
		log.Fatal("aggregates.mode=async requires redis")
	}

	primary, closePrimary := primaryCollaborator(ctx, settings, log)
	defer closePrimary()
	collab := ai.NewResilient(primary, settings.AI.Timeout, log)

	var speech stt.Provider
	if settings.AI.Speech {
		gs, err := stt.NewGoogleSpeech(ctx)
		if err != nil {
			log.WithError(err).Warn("speech init failed; spoken answers disabled")
		} else {
			defer gs.Close()
			speech = gs
		}
	}
	var uploader storage.Uploader
	if settings.Storage.Bucket != "" {
		up, err := storage.NewGCSUploader(ctx, settings.Storage.Bucket)
		if err != nil {
			log.WithError(err).Warn("GCS init failed; spoken answers disabled")
		} else {
			defer up.Close()
			uploader = up
		}
	}

	bus := events.NewBus(log)
	recDeps := services.RecomputerDeps{
		Guard:    consistency.NewGuard(repos.users, log),
		Locker:   locker,
		Progress: services.NewProgressAggregator(repos.sessions, repos.feedback, repos.progress, nil),
		Fleet:    services.NewFleetAggregator(repos.links, repos.sessions, repos.stats, settings.Aggregates.ActivityWindow, nil),
		Stats:    repos.stats,
		Cache:    store,
		Log:      log,
	}
	if queue != nil {
		recDeps.Queue = queue
	}
	recomputer := services.NewRecomputer(recDeps, services.RecomputerConfig{
		Mode:     mode,
		LockWait: settings.Aggregates.LockWait,
	})
	recomputer.Register(bus)

	feedbackSvc := services.NewFeedbackService(repos.sessions, repos.feedback, collab, bus, log)
	interviewSvc := services.NewInterviewService(services.InterviewDeps{
		Users:     repos.users,
		Sessions:  repos.sessions,
		Questions: repos.questions,
		Analytics: repos.analytics,
		Progress:  repos.progress,
		Profiles:  repos.profiles,
		Audit:     repos.audit,
		Feedback:  feedbackSvc,
		Generator: collab,
		Scorer:    collab,
		Speech:    speech,
		Uploader:  uploader,
		Locker:    locker,
		Bus:       bus,
		Log:       log,
	}, services.InterviewConfig{
		Policy: lifecycle.Policy{
			TabSwitchLimit:       settings.Security.TabSwitchLimit,
			WarningLimit:         settings.Security.WarningLimit,
			TerminateOnDevTools:  settings.Security.TerminateOnDevTools,
			TerminateOnCopyPaste: settings.Security.TerminateOnCopyPaste,
		},
		MaxEvents:       settings.Security.MaxRecordedEvents,
		LockWait:        settings.Aggregates.LockWait,
		MaxAudioBytes:   settings.Storage.MaxAudioBytes,
		SweepBatchLimit: settings.Interviews.SweepBatchLimit,
	}, nil)
	accountSvc := services.NewAccountService(repos.users, repos.links, repos.sessions, interviewSvc, recomputer, store, log)
	dashboardSvc := services.NewDashboardService(services.DashboardDeps{
		Users:      repos.users,
		Sessions:   repos.sessions,
		Progress:   repos.progress,
		Stats:      repos.stats,
		Recomputer: recomputer,
		Cache:      store,
		Log:        log,
	}, services.DashboardConfig{
		Staleness: settings.Aggregates.TeacherStatsStaleness,
		CacheTTL:  settings.Aggregates.CacheTTL,
	}, nil)
	profileSvc := services.NewProfileService(repos.profiles)

	if mode == services.ModeAsync {
		pool := &workers.RecomputeWorkerPool{
			Redis:      config.RedisClient,
			Runner:     recomputer,
			NumWorkers: settings.Workers.Recompute,
			Logger:     log,
		}
		if err := pool.Start(ctx); err != nil {
			log.WithError(err).Fatal("recompute workers start error")
		}
	}
	sweeper := &workers.MissedSweeper{Sessions: interviewSvc, Interval: settings.Workers.SweepInterval, Logger: log}
	go sweeper.Run(ctx)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.RegisterRoutes(r, routes.Deps{
		Interview: handlers.NewInterviewHandler(interviewSvc),
		Feedback:  handlers.NewFeedbackHandler(feedbackSvc),
		Dashboard: handlers.NewDashboardHandler(dashboardSvc),
		Profile:   handlers.NewProfileHandler(profileSvc),
		Account:   handlers.NewAccountHandler(accountSvc),
		JWT: middleware.JWTConfig{
			Secret:   settings.Auth.JWTSecret,
			Issuer:   settings.Auth.Issuer,
			Audience: settings.Auth.Audience,
		},
	})

	srv := &http.Server{
		Addr:              ":" + settings.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", settings.Server.Port).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http server shutdown")
	}
}
