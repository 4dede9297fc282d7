package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Amawers/idmsystem-sub000/internal"
	"github.com/Amawers/idmsystem-sub000/internal/audit"
	"github.com/Amawers/idmsystem-sub000/internal/casefile"
	"github.com/Amawers/idmsystem-sub000/internal/config"
	"github.com/Amawers/idmsystem-sub000/internal/cors"
	"github.com/Amawers/idmsystem-sub000/internal/export"
	"github.com/Amawers/idmsystem-sub000/internal/intake"
	"github.com/Amawers/idmsystem-sub000/internal/partner"
	"github.com/Amawers/idmsystem-sub000/internal/trace"
	"github.com/Amawers/idmsystem-sub000/internal/user"
	"github.com/Amawers/idmsystem-sub000/internal/wizard"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/middleware"
	_ "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.6.1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var AppName = "no-app-name"

var Version = "no-version"

var BuildTime = "no-build-time"

var CommitHash = "no-commit-hash"

var Environment = "no-env"

const sessionPruneInterval = 10 * time.Minute

func main() {
	AppName = os.Getenv("APP_NAME")
	if AppName == "" {
		AppName = "idmsystem-backend"
	}

	if BuildTime == "no-build-time" {
		now := time.Now()
		BuildTime = "not provided (now: " + now.Format(time.RFC3339) + ")"
	}

	Environment = os.Getenv("ENV")
	if Environment == "" {
		Environment = "no-env"
	}

	appMetadata := []zap.Field{
		zap.String("app_name", AppName),
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit_hash", CommitHash),
		zap.String("environment", Environment),
	}

	cfg, cfgLog := config.Load()
	err := cfg.Validate()
	if err != nil {
		if errors.Is(err, config.ErrDatabaseURLRequired) {
			title := "Database URL is required"
			message := "Please set the DATABASE_URL environment variable or provide a config file with the database_url key."
			message = EarlyApplicationFailed(title, message)
			log.Fatal(message)
		} else {
			log.Fatalf("Failed to validate config: %v, exiting...", err)
		}
	}

	logger, err := initLogger(&cfg, appMetadata)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v, exiting...", err)
	}

	cfgLog.FlushToZap(logger)

	logger.Info("Starting application...")

	logger.Info("Starting database migration...")

	err = databaseutil.MigrationUp(cfg.MigrationSource, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to run database migration", zap.Error(err))
	}

	dbPool, err := initDatabasePool(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize database pool", zap.Error(err))
	}
	defer dbPool.Close()

	shutdown, err := initOpenTelemetry(AppName, Version, BuildTime, CommitHash, Environment, cfg.OtelCollectorUrl)
	if err != nil {
		logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}

	validator := internal.NewValidator()
	problemWriter := internal.NewProblemWriter()

	// ============================================
	// Service
	// ============================================

	sessionManager := wizard.NewManager()
	wizardService := wizard.NewService(logger, sessionManager)
	casefileService := casefile.NewService(logger, dbPool)
	auditService := audit.NewService(logger, dbPool)
	partnerService := partner.NewService(logger, dbPool)
	userService := user.NewService(logger, dbPool)
	exportService := export.NewService(logger, casefileService)
	intakeService := intake.NewService(logger, wizardService, casefileService, auditService)

	// ============================================
	// Handler
	// ============================================

	wizardHandler := wizard.NewHandler(logger, validator, problemWriter, wizardService, casefileService, auditService)
	intakeHandler := intake.NewHandler(logger, validator, problemWriter, intakeService)
	casefileHandler := casefile.NewHandler(logger, validator, problemWriter, casefileService)
	partnerHandler := partner.NewHandler(logger, validator, problemWriter, partnerService)
	userHandler := user.NewHandler(logger, validator, problemWriter, userService)
	auditHandler := audit.NewHandler(logger, problemWriter, auditService)
	exportHandler := export.NewHandler(logger, problemWriter, exportService)

	// ============================================
	// Middleware
	// ============================================

	traceMiddleware := trace.NewMiddleware(logger, cfg.Debug)
	corsMiddleware := cors.NewMiddleware(logger, cfg.AllowOrigins)

	basicMiddleware := middleware.NewSet(traceMiddleware.RecoverMiddleware)
	basicMiddleware = basicMiddleware.Append(traceMiddleware.TraceMiddleware)

	// HTTP Server
	mux := http.NewServeMux()

	// Health check route
	mux.Handle("GET /api/healthz", basicMiddleware.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			logger.Error("Failed to write response", zap.Error(err))
		}
	}))

	// ============================================
	// Program and Session routes
	// ============================================

	mux.Handle("GET /api/programs", basicMiddleware.HandlerFunc(wizardHandler.ListProgramsHandler))
	mux.Handle("POST /api/programs/{program}/sessions", basicMiddleware.HandlerFunc(wizardHandler.CreateSessionHandler))

	mux.Handle("GET /api/sessions/{sessionId}", basicMiddleware.HandlerFunc(wizardHandler.GetSessionHandler))
	mux.Handle("DELETE /api/sessions/{sessionId}", basicMiddleware.HandlerFunc(wizardHandler.CancelSessionHandler))

	// Section Management
	// ----------------------
	mux.Handle("GET /api/sessions/{sessionId}/sections/{sectionKey}", basicMiddleware.HandlerFunc(wizardHandler.GetSectionHandler))
	mux.Handle("PATCH /api/sessions/{sessionId}/sections/{sectionKey}", basicMiddleware.HandlerFunc(wizardHandler.UpdateFieldHandler))
	mux.Handle("PUT /api/sessions/{sessionId}/sections/{sectionKey}", basicMiddleware.HandlerFunc(wizardHandler.SubmitSectionHandler))

	// -- Repeatable sub-records
	mux.Handle("POST /api/sessions/{sessionId}/sections/{sectionKey}/items", basicMiddleware.HandlerFunc(wizardHandler.AddItemHandler))
	mux.Handle("PUT /api/sessions/{sessionId}/sections/{sectionKey}/items/{index}", basicMiddleware.HandlerFunc(wizardHandler.ReplaceItemHandler))
	mux.Handle("DELETE /api/sessions/{sessionId}/sections/{sectionKey}/items/{index}", basicMiddleware.HandlerFunc(wizardHandler.RemoveItemHandler))

	// -- Final submission
	mux.Handle("POST /api/sessions/{sessionId}/submit", basicMiddleware.HandlerFunc(intakeHandler.SubmitHandler))

	// ============================================
	// Case routes
	// ============================================

	mux.Handle("GET /api/cases", basicMiddleware.HandlerFunc(casefileHandler.ListCasesHandler))
	mux.Handle("GET /api/cases/{caseId}", basicMiddleware.HandlerFunc(casefileHandler.GetCaseHandler))
	mux.Handle("DELETE /api/cases/{caseId}", basicMiddleware.HandlerFunc(casefileHandler.DeleteCaseHandler))

	// ============================================
	// Partner routes
	// ============================================

	mux.Handle("GET /api/partners", basicMiddleware.HandlerFunc(partnerHandler.ListPartnersHandler))
	mux.Handle("POST /api/partners", basicMiddleware.HandlerFunc(partnerHandler.CreatePartnerHandler))
	mux.Handle("GET /api/partners/{partnerId}", basicMiddleware.HandlerFunc(partnerHandler.GetPartnerHandler))
	mux.Handle("PUT /api/partners/{partnerId}", basicMiddleware.HandlerFunc(partnerHandler.UpdatePartnerHandler))
	mux.Handle("DELETE /api/partners/{partnerId}", basicMiddleware.HandlerFunc(partnerHandler.DeletePartnerHandler))

	// ============================================
	// User routes
	// ============================================

	mux.Handle("GET /api/users", basicMiddleware.HandlerFunc(userHandler.ListUsersHandler))
	mux.Handle("POST /api/users", basicMiddleware.HandlerFunc(userHandler.CreateUserHandler))
	mux.Handle("GET /api/users/{userId}", basicMiddleware.HandlerFunc(userHandler.GetUserHandler))
	mux.Handle("PUT /api/users/{userId}", basicMiddleware.HandlerFunc(userHandler.UpdateUserHandler))
	mux.Handle("DELETE /api/users/{userId}", basicMiddleware.HandlerFunc(userHandler.DeleteUserHandler))

	// ============================================
	// Audit and Export routes
	// ============================================

	mux.Handle("GET /api/audit", basicMiddleware.HandlerFunc(auditHandler.ListEntriesHandler))
	mux.Handle("GET /api/exports/{program}/roster", basicMiddleware.HandlerFunc(exportHandler.RosterHandler))

	// End of API routes
	// ============================================
	// handle interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Abandoned session janitor
	go func() {
		ticker := time.NewTicker(sessionPruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if pruned := sessionManager.Prune(cfg.SessionMaxIdle); pruned > 0 {
					logger.Info("Pruned idle wizard sessions", zap.Int("count", pruned))
				}
			}
		}
	}()

	// CORS and Entry Point
	entrypoint := corsMiddleware.HandlerFunc(mux.ServeHTTP)

	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: entrypoint,
	}

	go func() {
		logger.Info("Starting listening request", zap.String("host", cfg.Host), zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Fail to start server with error", zap.Error(err))
		}
	}()

	// wait for context close
	<-ctx.Done()
	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	otelCtx, otelCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer otelCancel()
	if err := shutdown(otelCtx); err != nil {
		logger.Error("Forced to shutdown OpenTelemetry", zap.Error(err))
	}

	logger.Info("Successfully shutdown")
}

func initLogger(cfg *config.Config, appMetadata []zap.Field) (*zap.Logger, error) {
	var err error
	var logger *zap.Logger
	if cfg.Debug {
		logger, err = logutil.ZapDevelopmentConfig().Build()
		if err != nil {
			return nil, err
		}
		logger.Info("Running in debug mode", appMetadata...)
	} else {
		logger, err = logutil.ZapProductionConfig().Build()
		if err != nil {
			return nil, err
		}

		logger = logger.With(appMetadata...)
	}
	defer func() {
		err := logger.Sync()
		if err != nil {
			zap.S().Errorw("Failed to sync logger", zap.Error(err))
		}
	}()

	return logger, nil
}

func initDatabasePool(databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	dbPool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, err
	}
	return dbPool, nil
}

func initOpenTelemetry(appName, version, buildTime, commitHash, environment, otelCollectorUrl string) (func(context.Context) error, error) {
	ctx := context.Background()

	serviceName := semconv.ServiceNameKey.String(appName)
	serviceVersion := semconv.ServiceVersionKey.String(version)
	serviceNamespace := semconv.ServiceNamespaceKey.String("idmsystem")
	serviceCommitHash := attribute.String("service.commit_hash", commitHash)
	serviceEnvironment := semconv.DeploymentEnvironmentKey.String(environment)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			serviceName,
			serviceVersion,
			serviceNamespace,
			serviceCommitHash,
			serviceEnvironment,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	options := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if otelCollectorUrl != "" {
		conn, err := initGrpcConn(otelCollectorUrl)
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
		}

		traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}

		bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
		options = append(options, sdktrace.WithSpanProcessor(bsp))
	}

	tracerProvider := sdktrace.NewTracerProvider(options...)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider.Shutdown, nil
}

func initGrpcConn(target string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	return conn, nil
}

func EarlyApplicationFailed(title, action string) string {
	result := `
-----------------------------------------
Application Failed to Start
-----------------------------------------

# What's wrong?
%s

# How to fix it?
%s

`

	result = fmt.Sprintf(result, title, action)
	return result
}
