// Package app assembles the service from configuration and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/axionslab/datavault/internal/auth"
	"github.com/axionslab/datavault/internal/config"
	"github.com/axionslab/datavault/internal/db"
	"github.com/axionslab/datavault/internal/download"
	"github.com/axionslab/datavault/internal/httpapi"
	"github.com/axionslab/datavault/internal/httpapi/handlers"
	"github.com/axionslab/datavault/internal/ratelimit"
	"github.com/axionslab/datavault/internal/requestlog"
	"github.com/axionslab/datavault/internal/storage"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	cleanupInterval = time.Minute
	shutdownTimeout = 10 * time.Second
)

// RunServer builds every component from cfg, serves HTTP until ctx is
// cancelled, then shuts down gracefully.
func RunServer(ctx context.Context, cfg config.Config) error {
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	log.Infof("database ready (%s)", db.DialectName(conn))

	blobs, errStore := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Bucket:          cfg.Storage.Bucket,
		PresignTTL:      cfg.PresignTTL,
	})
	if errStore != nil {
		return errStore
	}

	limiter := ratelimit.NewManager(
		ratelimit.NewGormLimiter(conn),
		limitPolicies(cfg.Limits),
		ratelimit.RedisConfig{
			Enabled:  cfg.Redis.Enabled,
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		},
		nil,
	)

	verifier := auth.NewVerifier(conn, auth.Secrets{
		APIKey:       cfg.APIKeySecret,
		SessionToken: cfg.SessionTokenSecret,
		SignedToken:  cfg.JWTSecret,
		SessionTTL:   cfg.SessionTTL,
		SignedTTL:    cfg.SignedTokenTTL,
	}, nil)

	tokens := download.NewManager(conn, download.Options{
		Secret: cfg.DownloadTokenSecret,
		TTL:    cfg.DownloadTokenTTL,
		BindIP: cfg.DownloadBindIP,
		BindUA: cfg.DownloadBindUA,
	}, limiter, blobs, nil)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	httpapi.RegisterRoutes(engine, httpapi.Deps{
		DB:       conn,
		Verifier: verifier,
		Limiter:  limiter,
		Tokens:   tokens,
		Blobs:    blobs,
		Recorder: requestlog.NewRecorder(conn),
		UploadLimits: handlers.UploadLimits{
			MaxFileSizeMB: cfg.MaxFileSizeMB,
			MaxRows:       cfg.MaxRows,
			MaxColumns:    cfg.MaxColumns,
		},
		PublicBaseURL: cfg.PublicBaseURL,
	})

	go db.RunCleanupLoop(ctx, conn, cleanupInterval)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// limitPolicies converts the configured limit tables to the limiter form.
// Nil config falls back to the stock policies.
func limitPolicies(rules map[string][]config.LimitRule) map[string][]ratelimit.Limit {
	if len(rules) == 0 {
		return nil
	}
	policies := make(map[string][]ratelimit.Limit, len(rules))
	for bucket, table := range rules {
		limits := make([]ratelimit.Limit, 0, len(table))
		for _, rule := range table {
			if rule.Max <= 0 || rule.WindowSeconds <= 0 {
				log.Warnf("config: ignoring invalid limit %q on bucket %q", rule.Name, bucket)
				continue
			}
			limits = append(limits, ratelimit.Limit{
				Name:          rule.Name,
				Max:           rule.Max,
				WindowSeconds: rule.WindowSeconds,
			})
		}
		if len(limits) > 0 {
			policies[bucket] = limits
		}
	}
	if len(policies) == 0 {
		return nil
	}
	return policies
}
