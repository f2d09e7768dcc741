package handlers

// handlers expose the resolution pipeline over HTTP. They translate pipeline
// errors into status codes and never leak a lyrics source failure as a 5xx.

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"lyricsfinder/genius"
	"lyricsfinder/helpers"
	"lyricsfinder/models"
	"lyricsfinder/pipeline"
	"lyricsfinder/sentryhelper"
)

const RequestIDHeader = "X-Request-ID"

const statusMessage = "Lyrics Service is running"

type Resolver interface {
	Resolve(ctx context.Context, query string) (models.ResolutionResult, error)
}

type Manager struct {
	Resolver Resolver
	Metrics  http.Handler
}

func NewManager(resolver Resolver, metricsHandler http.Handler) *Manager {
	return &Manager{
		Resolver: resolver,
		Metrics:  metricsHandler,
	}
}

// Register mounts every route on router.
func (m *Manager) Register(router gin.IRouter) {
	router.GET("/", m.Status)
	router.GET("/search", m.Search)
	if m.Metrics != nil {
		router.GET("/metrics", gin.WrapH(m.Metrics))
	}
}

func (m *Manager) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusMessage})
}

// Search resolves ?q= into lyrics or a fallback link. A catalog miss is a
// 200 with found=false.
func (m *Manager) Search(c *gin.Context) {
	ctx := c.Request.Context()
	query := c.Query("q")

	result, err := m.Resolver.Resolve(ctx, query)
	if err != nil {
		status, detail := errorStatus(err)
		logger := log.WithFields(log.Fields{
			"module":     "handlers",
			"request_id": helpers.RequestID(ctx),
		})
		if status >= http.StatusInternalServerError {
			logger.Errorf("search %q failed: %v", query, err)
			sentryhelper.CaptureException(ctx, err)
		} else {
			logger.Debugf("search %q rejected: %v", query, err)
		}
		c.JSON(status, gin.H{"detail": detail})
		return
	}

	c.JSON(http.StatusOK, result)
}

func errorStatus(err error) (int, string) {
	var upstream *genius.UpstreamError
	var source *pipeline.SourceError
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuery):
		return http.StatusBadRequest, "Query parameter 'q' is required"
	case errors.Is(err, genius.ErrUnauthorized):
		return http.StatusUnauthorized, "Invalid Genius access token"
	case errors.As(err, &upstream):
		return http.StatusInternalServerError, upstream.Error()
	case errors.As(err, &source):
		return http.StatusInternalServerError, source.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// RequestID tags each request with an id, reusing the caller's X-Request-ID
// when present. The id is echoed back and attached to logs and sentry.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		ctx := helpers.WithRequestID(c.Request.Context(), id)
		sentryhelper.SetTag(ctx, "request_id", id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
