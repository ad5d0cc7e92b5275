package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"putik-service/internal/auth"
	"putik-service/internal/models"
	"putik-service/internal/service"
	"putik-service/internal/store"
	"putik-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	actorKey        = "actor"
	loggerKey       = "logger"
)

// TokenVerifier validates bearer tokens
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// ProfileLoader resolves the role of an auth identity
type ProfileLoader interface {
	GetUserProfile(ctx context.Context, id string) (*models.UserProfile, error)
}

// requestID tags every request with an id, reusing the caller's when given
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger logs every request and stores a request-scoped logger
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		reqLogger := logger.With(
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		)
		c.Set(loggerKey, reqLogger)
		c.Request = c.Request.WithContext(util.WithLogger(c.Request.Context(), reqLogger))

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= 500:
			reqLogger.Error("HTTP Request", fields...)
		case status >= 400:
			reqLogger.Warn("HTTP Request", fields...)
		default:
			reqLogger.Info("HTTP Request", fields...)
		}
	}
}

// recovery turns panics into 500 responses
func recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.String("request_id", c.GetString("request_id")),
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", err),
					zap.Stack("stacktrace"))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
		}()
		c.Next()
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func authenticate(c *gin.Context, verifier TokenVerifier, profiles ProfileLoader) (service.Actor, int, error) {
	token, ok := bearerToken(c)
	if !ok {
		return service.Actor{}, http.StatusUnauthorized, errors.New("missing bearer token")
	}

	claims, err := verifier.Verify(token)
	if err != nil {
		return service.Actor{}, http.StatusUnauthorized, err
	}

	profile, err := profiles.GetUserProfile(c.Request.Context(), claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return service.Actor{}, http.StatusForbidden, errors.New("no profile for this account")
	}
	if err != nil {
		return service.Actor{}, http.StatusInternalServerError, err
	}

	return service.Actor{UserID: profile.ID, Role: profile.Role}, 0, nil
}

// requireAuth rejects requests without a valid token and stores the actor
func requireAuth(verifier TokenVerifier, profiles ProfileLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, status, err := authenticate(c, verifier, profiles)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(status, gin.H{
				"error":   http.StatusText(status),
				"details": err.Error(),
			})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// optionalAuth stores the actor when a valid token is present
func optionalAuth(verifier TokenVerifier, profiles ProfileLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := bearerToken(c); ok {
			if actor, _, err := authenticate(c, verifier, profiles); err == nil {
				c.Set(actorKey, actor)
			}
		}
		c.Next()
	}
}

// requireRole admits only the given roles; it must run after requireAuth
func requireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if ok {
			for _, r := range roles {
				if actor.Role == r {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden", "details": "role not allowed"})
	}
}

func actorFrom(c *gin.Context) (service.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return service.Actor{}, false
	}
	actor, ok := v.(service.Actor)
	return actor, ok
}

func mustActor(c *gin.Context) service.Actor {
	actor, _ := actorFrom(c)
	return actor
}

func requestLoggerFrom(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return util.GetLogger()
}
