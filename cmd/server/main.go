package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"botoapp/user/internal/config"
	"botoapp/user/internal/handlers"
	"botoapp/user/internal/jobs"
	"botoapp/user/internal/metrics"
	"botoapp/user/internal/models"
	appmw "botoapp/user/internal/middleware"
	"botoapp/user/internal/notify"
	"botoapp/user/internal/repositories"
	"botoapp/user/internal/routers"
	"botoapp/user/internal/services"
	"botoapp/user/internal/storage"
	"botoapp/user/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	loadConfig   = config.Load
	newLogger    = utils.NewLogger
	gormOpen     = defaultGormOpen
	newDialector = func(driver, dsn string) gorm.Dialector {
		if driver == "sqlite" {
			return sqlite.Open(dsn)
		}
		return postgres.Open(dsn)
	}
	runAutoMigrate = func(db *gorm.DB, models ...interface{}) error {
		return db.AutoMigrate(models...)
	}
	httpListenServe = defaultListenServe
	newSenders      = defaultSenders
	newImageStore   = defaultImageStore
	exitFunc        = os.Exit
	logFatalFn      = defaultLogFatal
	shutdownTimeout = 10 * time.Second
	retryInterval   = 500 * time.Millisecond
)

// resetServerGlobals restores every package-level seam to its production default.
func resetServerGlobals() {
	loadConfig = config.Load
	newLogger = utils.NewLogger
	gormOpen = defaultGormOpen
	newDialector = func(driver, dsn string) gorm.Dialector {
		if driver == "sqlite" {
			return sqlite.Open(dsn)
		}
		return postgres.Open(dsn)
	}
	runAutoMigrate = func(db *gorm.DB, models ...interface{}) error {
		return db.AutoMigrate(models...)
	}
	httpListenServe = defaultListenServe
	newSenders = defaultSenders
	newImageStore = defaultImageStore
	exitFunc = os.Exit
	logFatalFn = defaultLogFatal
	shutdownTimeout = 10 * time.Second
	retryInterval = 500 * time.Millisecond
}

func defaultGormOpen(driver, dsn string) (*gorm.DB, error) {
	return gorm.Open(newDialector(driver, dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
}

func defaultLogFatal(err error) {
	fmt.Fprintf(os.Stderr, "user-svc: %v\n", err)
	exitFunc(1)
}

// defaultListenServe serves until ctx is cancelled, then drains in-flight requests.
func defaultListenServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// connectWithRetry keeps dialling until the database answers a ping or timeout passes.
func connectWithRetry(driver, dsn string, timeout time.Duration, logger *zap.Logger) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		db, err := gormOpen(driver, dsn)
		if err == nil {
			var sqlDB *sql.DB
			if sqlDB, err = db.DB(); err == nil {
				if err = sqlDB.Ping(); err == nil {
					return db, nil
				}
				sqlDB.Close()
			}
		}
		lastErr = err
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("database not reachable after %s: %w", timeout, lastErr)
		}
		logger.Warn("database not ready, retrying", zap.String("driver", driver), zap.Error(err))
		time.Sleep(retryInterval)
	}
}

// defaultSenders wires the configured providers. Unconfigured channels log instead of sending.
func defaultSenders(cfg *config.Config, logger *zap.Logger) notify.Sender {
	logOnly := notify.LogSender{Log: func(msg notify.Message) {
		logger.Warn("notification provider not configured, message not sent",
			zap.String("channel", string(msg.Channel)),
			zap.String("to", msg.To))
	}}

	router := notify.Router{notify.ChannelSMS: logOnly, notify.ChannelEmail: logOnly}
	if sms, err := notify.NewTwilioSMS(notify.TwilioConfig{
		AccountSID:  cfg.TwilioAccountSID,
		AuthToken:   cfg.TwilioAuthToken,
		PhoneNumber: cfg.TwilioPhoneNumber,
	}); err == nil {
		router[notify.ChannelSMS] = sms
	} else {
		logger.Warn("sms disabled", zap.Error(err))
	}
	if email, err := notify.NewSMTPEmail(notify.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
		Name: cfg.AppName,
	}); err == nil {
		router[notify.ChannelEmail] = email
	} else {
		logger.Warn("email disabled", zap.Error(err))
	}
	return router
}

// defaultImageStore returns nil when no bucket is configured; uploads then answer 503.
func defaultImageStore(ctx context.Context, cfg *config.Config) (handlers.ImageStore, error) {
	if cfg.S3Bucket == "" {
		return nil, nil
	}
	store, err := storage.NewS3Store(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Endpoint)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(utils.LogConfig{Level: cfg.LogLevel, Dev: cfg.LogDev})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := connectWithRetry(cfg.DBDriver, cfg.DSN(), cfg.DBConnectTimeout, logger)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := runAutoMigrate(db, models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	userRepo := &repositories.UserRepository{DB: db}
	pendingRepo := &repositories.PendingUserRepository{DB: db}
	tokenRepo := &repositories.TokenRepository{DB: db}

	templates, err := notify.NewTemplates()
	if err != nil {
		return err
	}
	images, err := newImageStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init image store: %w", err)
	}

	sender := newSenders(cfg, logger)
	var (
		queue    handlers.Notifier
		throttle func(http.Handler) http.Handler
	)
	if cfg.SkipRedis {
		logger.Info("redis disabled, delivering notifications inline")
		queue = services.NewDirectQueue(sender, logger)
	} else {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis not reachable at %s: %w", cfg.RedisAddr, err)
		}
		workerCtx, cancelWorker := context.WithCancel(ctx)
		defer cancelWorker()
		rq := services.NewRedisQueue(rdb, sender, logger)
		go rq.Run(workerCtx)
		queue = rq
		throttle = appmw.NewRateLimiter(rdb, "ratelimit:otp", cfg.OTPRateLimit, cfg.OTPRateWindow, logger).
			MiddlewareByKey(appmw.ClientIPAndPath)
	}

	cleanup := jobs.NewCleanupJob(pendingRepo, tokenRepo, &jobs.CleanupConfig{
		Schedule:      cfg.CleanupSchedule,
		OTPLifespan:   cfg.OTPLifespan(),
		TokenLifespan: cfg.ResetTokenLifespan(),
	}, logger)
	if err := cleanup.Start(); err != nil {
		return err
	}
	defer cleanup.Stop()

	issuer := utils.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenLifetime, cfg.RefreshTokenLifetime)
	authHandler := &handlers.AuthHandler{
		Users:     userRepo,
		Pending:   pendingRepo,
		Tokens:    tokenRepo,
		Issuer:    issuer,
		Notifier:  queue,
		Templates: templates,
		Settings: handlers.AuthSettings{
			AppName:         cfg.AppName,
			OTPLifespan:     cfg.OTPLifespan(),
			TokenLifespan:   cfg.ResetTokenLifespan(),
			MaxLoginAttempt: cfg.MaxLoginAttempt,
		},
		Logger: logger,
	}
	userHandler := &handlers.UserHandler{
		Users:       userRepo,
		Images:      images,
		Logger:      logger,
		PageSize:    cfg.PageSize,
		MaxPageSize: cfg.MaxPageSize,
	}

	proxies, err := appmw.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		appmw.TrustedRealIP(proxies),
		appmw.RequestLogger(logger),
		appmw.Recoverer(logger),
		metrics.Middleware("user"),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
		middleware.Timeout(60*time.Second),
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	guards := routers.Guards{
		Authenticate: appmw.Authenticate(issuer, userRepo, logger),
		Throttle:     throttle,
	}
	routers.AuthRoutes(r, authHandler, guards)
	routers.UserRoutes(r, userHandler, authHandler, guards)

	addr := ":" + cfg.Port
	logger.Info("user-svc listening", zap.String("addr", addr), zap.String("db_driver", cfg.DBDriver))
	if err := httpListenServe(ctx, addr, r); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("user-svc stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		logFatalFn(err)
	}
}
