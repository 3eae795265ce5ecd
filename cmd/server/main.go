// Command server starts the Clipstream API HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"clipstream/internal/api"
	"clipstream/internal/auth"
	"clipstream/internal/observability/logging"
	"clipstream/internal/observability/metrics"
	"clipstream/internal/server"
	"clipstream/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	mode := flag.String("mode", "", "server runtime mode (development or production)")
	dataPath := flag.String("data", "", "path to JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "interval between Postgres health checks")
	postgresAcquireTimeout := flag.Duration("postgres-acquire-timeout", 0, "timeout when acquiring a Postgres connection from the pool")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	accessTokenKey := flag.String("access-token-key", "", "signing key for access credentials")
	refreshTokenKey := flag.String("refresh-token-key", "", "signing key for refresh credentials")
	accessTokenTTL := flag.Duration("access-token-ttl", 0, "lifetime of issued access credentials")
	refreshTokenTTL := flag.Duration("refresh-token-ttl", 0, "lifetime of issued refresh credentials")
	storeTimeout := flag.Duration("store-timeout", 0, "per-operation datastore timeout for auth flows")
	viewsRedisAddr := flag.String("views-redis-addr", "", "Redis address for the shared playback view counter")
	viewsRedisUsername := flag.String("views-redis-username", "", "Redis username for the view counter")
	viewsRedisPassword := flag.String("views-redis-password", "", "Redis password for the view counter")
	viewsRedisDB := flag.Int("views-redis-db", 0, "Redis database for the view counter")
	viewsFlushInterval := flag.Duration("views-flush-interval", 0, "interval between view counter flushes")
	objectEndpoint := flag.String("object-endpoint", "", "object storage endpoint (e.g. http://127.0.0.1:9000)")
	objectRegion := flag.String("object-region", "", "object storage region")
	objectAccessKey := flag.String("object-access-key", "", "object storage access key")
	objectSecretKey := flag.String("object-secret-key", "", "object storage secret key")
	objectBucket := flag.String("object-bucket", "", "object storage bucket name")
	objectUseSSL := flag.Bool("object-use-ssl", false, "enable TLS for object storage requests")
	objectPrefix := flag.String("object-prefix", "", "object storage key prefix for uploads")
	objectPublicEndpoint := flag.String("object-public-endpoint", "", "public endpoint used for media URLs")
	corsOrigins := flag.String("cors-origins", "", "comma separated origins allowed to call the API with credentials")
	cookieSecure := flag.String("cookie-secure", "", "session cookie secure policy (auto or always)")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log output format (json or text)")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("CLIPSTREAM_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("CLIPSTREAM_LOG_FORMAT")),
	})
	recorder := metrics.Default()

	serverMode := modeValue(*mode, os.Getenv("CLIPSTREAM_MODE"))
	listenAddr := resolveListenAddr(*addr, serverMode, os.Getenv("CLIPSTREAM_ADDR"))

	accessKey := firstNonEmpty(*accessTokenKey, os.Getenv("CLIPSTREAM_ACCESS_TOKEN_KEY"))
	refreshKey := firstNonEmpty(*refreshTokenKey, os.Getenv("CLIPSTREAM_REFRESH_TOKEN_KEY"))
	if accessKey == "" || refreshKey == "" {
		logger.Error("token signing keys are required", "access_key_set", accessKey != "", "refresh_key_set", refreshKey != "")
		os.Exit(1)
	}

	var issuerOpts []auth.TokenIssuerOption
	if ttl := resolveDuration(*accessTokenTTL, "CLIPSTREAM_ACCESS_TOKEN_TTL", 0); ttl > 0 {
		issuerOpts = append(issuerOpts, auth.WithAccessTTL(ttl))
	}
	if ttl := resolveDuration(*refreshTokenTTL, "CLIPSTREAM_REFRESH_TOKEN_TTL", 0); ttl > 0 {
		issuerOpts = append(issuerOpts, auth.WithRefreshTTL(ttl))
	}
	issuer, err := auth.NewTokenIssuer([]byte(accessKey), []byte(refreshKey), issuerOpts...)
	if err != nil {
		logger.Error("failed to configure token issuer", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openRepository(ctx, repositoryConfig{
		Driver:          *storageDriver,
		DataPath:        *dataPath,
		PostgresDSN:     *postgresDSN,
		Mode:            serverMode,
		MaxConns:        resolveInt(*postgresMaxConns, "CLIPSTREAM_POSTGRES_MAX_CONNS"),
		MinConns:        resolveInt(*postgresMinConns, "CLIPSTREAM_POSTGRES_MIN_CONNS"),
		MaxConnLifetime: resolveDuration(*postgresMaxConnLifetime, "CLIPSTREAM_POSTGRES_MAX_CONN_LIFETIME", 0),
		MaxConnIdle:     resolveDuration(*postgresMaxConnIdle, "CLIPSTREAM_POSTGRES_MAX_CONN_IDLE", 0),
		HealthInterval:  resolveDuration(*postgresHealthInterval, "CLIPSTREAM_POSTGRES_HEALTH_INTERVAL", 0),
		AcquireTimeout:  resolveDuration(*postgresAcquireTimeout, "CLIPSTREAM_POSTGRES_ACQUIRE_TIMEOUT", 0),
		AppName:         firstNonEmpty(*postgresAppName, os.Getenv("CLIPSTREAM_POSTGRES_APP_NAME")),
	})
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	sessions, ok := store.(auth.SessionStore)
	if !ok {
		logger.Error("datastore does not support sessions")
		os.Exit(1)
	}
	users, ok := store.(auth.UserStore)
	if !ok {
		logger.Error("datastore does not support accounts")
		os.Exit(1)
	}

	var serviceOpts []auth.ServiceOption
	if timeout := resolveDuration(*storeTimeout, "CLIPSTREAM_STORE_TIMEOUT", 0); timeout > 0 {
		serviceOpts = append(serviceOpts, auth.WithStoreTimeout(timeout))
	}
	serviceOpts = append(serviceOpts, auth.WithLogger(logging.WithComponent(logger, "auth")))
	authService := auth.NewService(users, sessions, issuer, serviceOpts...)

	blobCfg := storage.BlobStoreConfig{
		Endpoint:       firstNonEmpty(*objectEndpoint, os.Getenv("CLIPSTREAM_OBJECT_ENDPOINT")),
		Region:         firstNonEmpty(*objectRegion, os.Getenv("CLIPSTREAM_OBJECT_REGION")),
		AccessKey:      firstNonEmpty(*objectAccessKey, os.Getenv("CLIPSTREAM_OBJECT_ACCESS_KEY")),
		SecretKey:      firstNonEmpty(*objectSecretKey, os.Getenv("CLIPSTREAM_OBJECT_SECRET_KEY")),
		Bucket:         firstNonEmpty(*objectBucket, os.Getenv("CLIPSTREAM_OBJECT_BUCKET")),
		UseSSL:         resolveBool(*objectUseSSL, "CLIPSTREAM_OBJECT_USE_SSL"),
		Prefix:         firstNonEmpty(*objectPrefix, os.Getenv("CLIPSTREAM_OBJECT_PREFIX")),
		PublicEndpoint: firstNonEmpty(*objectPublicEndpoint, os.Getenv("CLIPSTREAM_OBJECT_PUBLIC_ENDPOINT")),
	}
	blobs := storage.NewBlobStore(blobCfg)

	var (
		views       storage.ViewCounter
		viewsCloser func() error
	)
	if redisAddr := firstNonEmpty(*viewsRedisAddr, os.Getenv("CLIPSTREAM_VIEWS_REDIS_ADDR")); redisAddr != "" {
		counter, err := storage.NewRedisViewCounter(ctx, storage.RedisViewCounterConfig{
			Addr:     redisAddr,
			Username: firstNonEmpty(*viewsRedisUsername, os.Getenv("CLIPSTREAM_VIEWS_REDIS_USERNAME")),
			Password: firstNonEmpty(*viewsRedisPassword, os.Getenv("CLIPSTREAM_VIEWS_REDIS_PASSWORD")),
			DB:       resolveInt(*viewsRedisDB, "CLIPSTREAM_VIEWS_REDIS_DB"),
		})
		if err != nil {
			logger.Error("failed to connect view counter", "error", err)
			os.Exit(1)
		}
		views = counter
		viewsCloser = counter.Close
	} else {
		views = storage.NewMemoryViewCounter()
	}

	handler := api.NewHandler(store, authService)
	handler.Blobs = blobs
	handler.Views = views
	handler.Metrics = recorder
	cookiePolicy, err := resolveCookiePolicy(*cookieSecure, os.Getenv("CLIPSTREAM_COOKIE_SECURE"), serverMode)
	if err != nil {
		logger.Error("invalid cookie policy", "error", err)
		os.Exit(1)
	}
	handler.CookiePolicy = cookiePolicy

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("CLIPSTREAM_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("CLIPSTREAM_TLS_KEY")),
		},
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("CLIPSTREAM_CORS_ORIGINS"))),
		},
		Logger:  logger,
		Metrics: recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	flushInterval := resolveDuration(*viewsFlushInterval, "CLIPSTREAM_VIEWS_FLUSH_INTERVAL", 30*time.Second)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("clipstream API listening", "addr", listenAddr, "mode", serverMode)
		if err := srv.Run(groupCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		err := storage.FlushViews(groupCtx, views, store, flushInterval, logging.WithComponent(logger, "views"))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", "error", err)
	}

	if viewsCloser != nil {
		if err := viewsCloser(); err != nil {
			logger.Warn("failed to close view counter", "error", err)
		}
	}
	if closer, ok := store.(interface{ Close(context.Context) error }); ok {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := closer.Close(closeCtx); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
		cancel()
	}

	logger.Info("server stopped")
}

type repositoryConfig struct {
	Driver          string
	DataPath        string
	PostgresDSN     string
	Mode            string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdle     time.Duration
	HealthInterval  time.Duration
	AcquireTimeout  time.Duration
	AppName         string
}

func openRepository(ctx context.Context, cfg repositoryConfig) (storage.Repository, error) {
	dsn := strings.TrimSpace(firstNonEmpty(cfg.PostgresDSN, os.Getenv("CLIPSTREAM_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
	driver, err := resolveStorageDriver(cfg.Driver, os.Getenv("CLIPSTREAM_STORAGE_DRIVER"), dsn)
	if err != nil {
		return nil, err
	}
	if cfg.Mode == "production" && driver != "postgres" {
		return nil, fmt.Errorf("production mode requires the postgres datastore driver, got %q", driver)
	}
	switch driver {
	case "json":
		return storage.NewStorage(resolveDataPath(cfg.DataPath, os.Getenv("CLIPSTREAM_DATA")))
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("postgres storage selected without DSN")
		}
		return storage.NewPostgresRepository(ctx, storage.PostgresConfig{
			DSN:                 dsn,
			MaxConnections:      int32(cfg.MaxConns),
			MinConnections:      int32(cfg.MinConns),
			MaxConnLifetime:     cfg.MaxConnLifetime,
			MaxConnIdleTime:     cfg.MaxConnIdle,
			HealthCheckInterval: cfg.HealthInterval,
			AcquireTimeout:      cfg.AcquireTimeout,
			ApplicationName:     cfg.AppName,
		})
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

func resolveStorageDriver(flagValue, envValue, postgresDSN string) (string, error) {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver, nil
	}
	if driver := strings.ToLower(strings.TrimSpace(envValue)); driver != "" {
		return driver, nil
	}
	if postgresDSN != "" {
		return "postgres", nil
	}
	return "json", nil
}

func resolveDataPath(flagValue, envValue string) string {
	if path := strings.TrimSpace(flagValue); path != "" {
		return path
	}
	if path := strings.TrimSpace(envValue); path != "" {
		return path
	}
	return "data/clipstream.json"
}

func resolveCookiePolicy(flagValue, envValue, mode string) (api.SessionCookiePolicy, error) {
	policy := api.DefaultSessionCookiePolicy()
	raw := strings.ToLower(strings.TrimSpace(firstNonEmpty(flagValue, envValue)))
	switch raw {
	case "":
		if mode == "production" {
			policy.SecureMode = api.SessionCookieSecureAlways
		}
	case "auto":
		policy.SecureMode = api.SessionCookieSecureAuto
	case "always":
		policy.SecureMode = api.SessionCookieSecureAlways
	default:
		return policy, fmt.Errorf("unsupported cookie secure mode %q", raw)
	}
	return policy, nil
}

func modeValue(flagMode, envMode string) string {
	mode := strings.ToLower(strings.TrimSpace(flagMode))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(envMode))
	}
	if mode == "" {
		mode = "development"
	}
	return mode
}

func resolveListenAddr(flagValue, mode, envAddr string) string {
	listenAddr := strings.TrimSpace(flagValue)
	if listenAddr == "" {
		listenAddr = strings.TrimSpace(envAddr)
	}
	if listenAddr == "" {
		listenAddr = defaultListenForMode(mode)
	}
	return listenAddr
}

func defaultListenForMode(mode string) string {
	if mode == "production" {
		return ":80"
	}
	return ":8080"
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	return fallback
}

func resolveBool(flagValue bool, envKey string) bool {
	if flagValue {
		return true
	}
	if env, ok := os.LookupEnv(envKey); ok {
		if value, err := strconv.ParseBool(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return false
}
