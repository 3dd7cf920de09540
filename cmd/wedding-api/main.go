package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wedding-rsvp/backend/internal/config"
	"github.com/wedding-rsvp/backend/internal/database"
	"github.com/wedding-rsvp/backend/internal/logging"
	"github.com/wedding-rsvp/backend/internal/metrics"
	"github.com/wedding-rsvp/backend/internal/photos"
	"github.com/wedding-rsvp/backend/internal/ratelimit"
	"github.com/wedding-rsvp/backend/internal/rsvp"
	"github.com/wedding-rsvp/backend/internal/seed"
	"github.com/wedding-rsvp/backend/internal/server"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	seedFile  string
	seedReset bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wedding-api",
		Short: "Wedding RSVP backend service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Import the guest list from an invitation or YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context())
		},
	}
	seedCmd.Flags().StringVar(&seedFile, "file", "", "Guest list file (.txt invitation format or .yaml)")
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "Delete existing guests and families before importing")
	_ = seedCmd.MarkFlagRequired("file")

	setupFlags(rootCmd)
	rootCmd.AddCommand(seedCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("admin-password", "", "Admin password (overrides env)")
	cmd.PersistentFlags().StringSlice("allowed-origins", defaults.GetStringSlice("cors.allowed_origins"), "CORS allowed origins")
	cmd.PersistentFlags().String("photos-dir", defaults.GetString("photos.dir"), "Directory for uploaded photos")
	cmd.PersistentFlags().Int64("photos-max-bytes", defaults.GetInt64("photos.max_bytes"), "Maximum photo upload size in bytes")
	cmd.PersistentFlags().Int("photos-rate-limit", defaults.GetInt("photos.rate_limit"), "Photo uploads allowed per address per window")
	cmd.PersistentFlags().Duration("photos-rate-window", defaults.GetDuration("photos.rate_window"), "Photo upload rate limit window")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "admin.password", "admin-password")
	bindFlag(cmd, "cors.allowed_origins", "allowed-origins")
	bindFlag(cmd, "photos.dir", "photos-dir")
	bindFlag(cmd, "photos.max_bytes", "photos-max-bytes")
	bindFlag(cmd, "photos.rate_limit", "photos-rate-limit")
	bindFlag(cmd, "photos.rate_window", "photos-rate-window")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(registry)

	rsvpService, err := rsvp.NewService(rsvp.ServiceConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
		Metrics:  appMetrics,
	})
	if err != nil {
		return err
	}

	uploadLimiter, err := ratelimit.New(ratelimit.Config{
		Limit:  appConfig.PhotosRateLimit,
		Window: appConfig.PhotosRateWindow,
	})
	if err != nil {
		return err
	}

	photoService, err := photos.NewService(photos.ServiceConfig{
		Database:   db,
		Directory:  appConfig.PhotosDir,
		MaxBytes:   appConfig.PhotosMaxBytes,
		Limiter:    uploadLimiter,
		IDProvider: photos.NewUUIDProvider(),
		Clock:      time.Now,
		Logger:     logger,
		Metrics:    appMetrics,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		RSVPService:    rsvpService,
		PhotoService:   photoService,
		AdminPassword:  appConfig.AdminPassword,
		AllowedOrigins: appConfig.AllowedOrigins,
		Metrics:        appMetrics,
		Gatherer:       registry,
		Realtime:       server.NewRealtimeDispatcher(),
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runSeed(ctx context.Context) error {
	appConfig, err := config.LoadStorage(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	plan, err := seed.LoadFile(seedFile)
	if err != nil {
		return fmt.Errorf("load guest list: %w", err)
	}

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	result, err := seed.Apply(ctx, db, plan, seed.Options{Reset: seedReset, Clock: time.Now, Logger: logger})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "seeded %d families and %d guests\n", result.Families, result.Guests)
	return nil
}
