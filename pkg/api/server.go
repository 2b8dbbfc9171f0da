// Package api provides the REST control surface of a running meeblipcc instance
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/james-see/meeblipcc/pkg/engine"
	"github.com/james-see/meeblipcc/pkg/host"
	"github.com/james-see/meeblipcc/pkg/midi"
)

// @title meeblipcc API
// @version 1.0
// @description Parameter and program control of a Meeblip CC engine
// @host localhost:8080
// @BasePath /api/v1

// callTimeout bounds how long a request waits for the block loop
const callTimeout = 2 * time.Second

// Server routes HTTP requests into the block loop of a runner
type Server struct {
	runner *host.Runner
	replay engine.Config
	logger *zap.Logger
}

// NewServer returns a server controlling runner. replayCfg seeds the fresh
// engine built for every replay upload.
func NewServer(runner *host.Runner, replayCfg engine.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{runner: runner, replay: replayCfg, logger: logger.Named("api")}
}

// Router builds the gin engine with every route installed
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/info", s.info)
		v1.GET("/layout", s.getLayout)
		v1.GET("/parameters", s.listParameters)
		v1.GET("/parameters/:index", s.getParameter)
		v1.PUT("/parameters/:index", s.setParameter)
		v1.GET("/program", s.getProgram)
		v1.PUT("/program/:number", s.setProgram)
		v1.GET("/programs", s.listPrograms)
		v1.POST("/replay", s.handleReplay)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartServer serves the API on port until ctx is done
func (s *Server) StartServer(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

// call runs fn on the block goroutine, bounded by the request context
func (s *Server) call(c *gin.Context, fn func(*engine.Engine) error) error {
	ctx, cancel := context.WithTimeout(c.Request.Context(), callTimeout)
	defer cancel()
	return s.runner.Call(ctx, fn)
}

// writeError maps engine errors onto status codes
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrParameterIndex), errors.Is(err, engine.ErrProgramIndex):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, host.ErrStopped):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// healthCheck godoc
// @Summary Health check endpoint
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "meeblipcc",
	})
}

// info godoc
// @Summary Instance identification and capabilities
// @Tags info
// @Produce json
// @Router /info [get]
func (s *Server) info(c *gin.Context) {
	caps := []string{"receiveVstEvents", "sendVstEvents", "sendVstMidiEvent", "receiveVstMidiEvent"}
	supported := make([]string, 0, len(caps))
	for _, name := range caps {
		if engine.CanDo(name) {
			supported = append(supported, name)
		}
	}

	var (
		echo  bool
		stats engine.Stats
	)
	err := s.call(c, func(e *engine.Engine) error {
		echo = e.EchoEnabled()
		stats = e.Stats()
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"effect":         engine.EffectName,
		"vendor":         engine.VendorString,
		"product":        engine.ProductString,
		"version":        engine.VendorVersion,
		"midiInputs":     engine.NumMidiInputChannels,
		"midiOutputs":    engine.NumMidiOutputChannels,
		"capabilities":   supported,
		"maxBatchEvents": midi.MaxEventsPerBlock,
		"echo":           echo,
		"stats":          stats,
	})
}

// parseIndex reads an integer path parameter
func parseIndex(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s must be an integer", name)})
		return 0, false
	}
	return n, true
}
