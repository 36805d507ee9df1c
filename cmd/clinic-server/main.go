package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ehr/clinic/internal/config"
	"github.com/ehr/clinic/internal/domain/bodycomp"
	"github.com/ehr/clinic/internal/domain/dashboard"
	"github.com/ehr/clinic/internal/domain/labs"
	"github.com/ehr/clinic/internal/domain/patient"
	"github.com/ehr/clinic/internal/domain/wellness"
	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/platform/db"
	"github.com/ehr/clinic/internal/platform/events"
	"github.com/ehr/clinic/internal/platform/metrics"
	"github.com/ehr/clinic/internal/platform/middleware"
	"github.com/ehr/clinic/internal/sandbox"
	"github.com/ehr/clinic/migrations"
	"github.com/ehr/clinic/pkg/caldate"
)

const (
	version         = "0.1.0"
	metricsNS       = "clinic"
	shutdownTimeout = 10 * time.Second
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinic-server",
		Short:         "Clinic patient records and lab alert API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatus(cmd, statuses)
			return nil
		},
	}
	cmd.AddCommand(statusCmd)

	return cmd
}

func printStatus(cmd *cobra.Command, statuses []db.MigrationStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format(time.RFC3339)
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// seedCmd upserts the lab test catalog by name. Without --file the built-in
// catalog is used. --demo also generates patients with a visit history. The
// whole run is one transaction.
func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load lab test definitions and optional demo patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			demo, _ := cmd.Flags().GetBool("demo")
			count, _ := cmd.Flags().GetInt("patients")
			seed, _ := cmd.Flags().GetInt64("demo-seed")
			if demo && count <= 0 {
				return fmt.Errorf("--patients must be positive")
			}
			catalog, err := loadCatalog(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			defRepo := labs.NewDefinitionRepoPG(pool)
			patientSvc := patient.NewService(patient.NewPatientRepoPG(pool), nil)
			labSvc := labs.NewService(defRepo, labs.NewResultRepoPG(pool), patientSvc).WithTx(txRunner(pool))

			var (
				created, updated int
				demoRes          *sandbox.SeedResult
			)
			err = db.InTx(ctx, pool, func(ctx context.Context) error {
				var err error
				created, updated, err = labSvc.SeedDefinitions(ctx, catalog)
				if err != nil || !demo {
					return err
				}
				defs, err := defRepo.ListAll(ctx)
				if err != nil {
					return err
				}
				seeder := sandbox.NewSeeder(
					sandbox.SeedConfig{PatientCount: count, Seed: seed, Today: caldate.Today()},
					sandbox.Writers{
						Patients:     patientSvc,
						Labs:         labSvc,
						Bioimpedance: bodycomp.NewService(bodycomp.NewBioimpedanceRepoPG(pool), bodycomp.NewAnthropometryRepoPG(pool), patientSvc),
						Subjective:   wellness.NewService(wellness.NewSubjectiveRepoPG(pool), patientSvc),
					},
				)
				demoRes, err = seeder.Generate(ctx, defs)
				return err
			})
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded lab catalog: %d created, %d updated.\n", created, updated)
			if demoRes != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded demo data: %d patients, %d lab results, %d bioimpedance, %d subjective entries.\n",
					demoRes.Patients, demoRes.LabResults, demoRes.Bioimpedance, demoRes.Subjective)
			}
			return nil
		},
	}
	cmd.Flags().String("file", "", "YAML catalog to load instead of the built-in one")
	cmd.Flags().Bool("demo", false, "Also generate demo patients with three monthly visits")
	cmd.Flags().Int("patients", 5, "Number of demo patients")
	cmd.Flags().Int64("demo-seed", 1, "Random seed for demo data")
	return cmd
}

// txRunner binds db.InTx to a pool for services that group writes.
func txRunner(b db.Beginner) labs.TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.InTx(ctx, b, fn)
	}
}

func loadCatalog(file string) ([]*labs.LabTestDefinition, error) {
	if file == "" {
		return labs.DefaultCatalog()
	}
	return labs.LoadCatalog(file)
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			roles, _ := cmd.Flags().GetStringSlice("roles")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, err := issueToken(cfg, subject, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("subject", "", "User id placed in the sub claim")
	cmd.Flags().StringSlice("roles", []string{auth.RolePhysician}, "Comma separated roles")
	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	return cmd
}

func issueToken(cfg *config.Config, subject string, roles []string, ttl time.Duration) (string, error) {
	for _, r := range roles {
		if !isKnownRole(r) {
			return "", fmt.Errorf("unknown role %q", r)
		}
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}
	return auth.IssueToken(jwtConfig(cfg), subject, roles, ttl)
}

func isKnownRole(role string) bool {
	switch role {
	case auth.RoleAdmin, auth.RolePhysician, auth.RoleNurse, auth.RoleNutritionist:
		return true
	}
	return false
}

func jwtConfig(cfg *config.Config) auth.JWTConfig {
	return auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthSigningKey),
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().Logger()
	}
	return logger
}

func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

// newPublisher picks Kafka when brokers are configured and falls back to
// logging the events otherwise.
func newPublisher(cfg *config.Config, logger zerolog.Logger) (events.Publisher, error) {
	if !cfg.KafkaEnabled() {
		return events.NewLogPublisher(logger), nil
	}
	return events.NewKafkaPublisher(events.KafkaConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaAlertTopic,
	}, logger)
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)
	log.Logger = logger

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	e := newServer(cfg, pool, publisher, metrics.NewCollector(metricsNS), logger)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newServer builds the echo instance with every route registered. The pool is
// only touched by requests, so tests can pass nil.
func newServer(cfg *config.Config, pool *pgxpool.Pool, publisher events.Publisher, col *metrics.Collector, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Metrics(col))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"X-Total-Count", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"events":  events.Status(publisher),
		})
	})
	e.GET("/health/db", db.PoolHealthHandler(pool))
	e.GET("/metrics", echo.WrapHandler(col.Handler()))

	rateLimit := middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	})
	authMW := auth.JWTMiddleware(jwtConfig(cfg))
	if cfg.IsDev() {
		authMW = auth.DevAuthMiddleware(jwtConfig(cfg))
	}
	apiV1 := e.Group("/api/v1", rateLimit, authMW)
	fhirGroup := e.Group("/fhir", rateLimit, authMW)

	patientRepo := patient.NewPatientRepoPG(pool)
	defRepo := labs.NewDefinitionRepoPG(pool)
	resultRepo := labs.NewResultRepoPG(pool)
	bioRepo := bodycomp.NewBioimpedanceRepoPG(pool)
	anthroRepo := bodycomp.NewAnthropometryRepoPG(pool)
	subjRepo := wellness.NewSubjectiveRepoPG(pool)

	patientSvc := patient.NewService(patientRepo, col)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	labSvc := labs.NewService(defRepo, resultRepo, patientSvc).
		WithPublisher(publisher).
		WithMetrics(col).
		WithLogger(logger)
	labs.NewHandler(labSvc).RegisterRoutes(apiV1, fhirGroup)

	bodycomp.NewHandler(bodycomp.NewService(bioRepo, anthroRepo, patientSvc)).RegisterRoutes(apiV1)
	wellness.NewHandler(wellness.NewService(subjRepo, patientSvc)).RegisterRoutes(apiV1)

	dashSvc := dashboard.NewService(dashboard.Sources{
		Patients:      patientSvc,
		Definitions:   defRepo,
		Results:       resultRepo,
		Bioimpedance:  bioRepo,
		Anthropometry: anthroRepo,
		Subjective:    subjRepo,
	}, col)
	dashboard.NewHandler(dashSvc).RegisterRoutes(apiV1)

	return e
}
