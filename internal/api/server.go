package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/catalog/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
)

// Default timeout values.
const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 60 * time.Second
	defaultIdleTimeout  = 120 * time.Second
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	ServiceName    string
	ServiceVersion string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Debug          bool
	CORSOrigins    []string
	Middleware     []gin.HandlerFunc
}

// HealthChecks are the dependency checks reported by GET /health.
type HealthChecks struct {
	Database func(ctx context.Context) error
	Storage  func(ctx context.Context) error
}

// NewServer creates a new HTTP server using the infrastructure gin package.
func NewServer(handler *Handler, serverCfg ServerConfig, checks HealthChecks, metrics http.Handler, log logger.Logger) *infragin.Server {
	readTimeout := serverCfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = defaultReadTimeout
	}
	writeTimeout := serverCfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = defaultWriteTimeout
	}

	builder := infragin.NewServerBuilder(serverCfg.ServiceName, serverCfg.Port).
		WithLogger(log).
		WithDebug(serverCfg.Debug).
		WithVersion(serverCfg.ServiceVersion).
		WithTimeouts(readTimeout, writeTimeout, defaultIdleTimeout)

	if len(serverCfg.CORSOrigins) > 0 {
		builder = builder.WithCORSOrigins(serverCfg.CORSOrigins)
	}
	if checks.Database != nil {
		builder = builder.WithDatabaseHealthCheck(checks.Database)
	}
	if checks.Storage != nil {
		builder = builder.WithHealthCheck("storage", infragin.StorageHealthChecker(checks.Storage))
	}

	return builder.
		WithRoutes(func(router *gin.Engine) {
			SetupServiceRoutes(router, handler, metrics, serverCfg.Middleware...)
		}).
		Build()
}
