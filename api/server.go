// Package api serves a read-only HTTP view of tracked positions and stored
// backtest results.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rustyeddy/tradeplan/journal"
	"github.com/rustyeddy/tradeplan/portfolio"
	"github.com/rustyeddy/tradeplan/result"
)

// ResultStore looks up a stored result by symbol and start date.
type ResultStore interface {
	GetResult(symbol, date string) (result.BacktestResult, error)
}

// RunIndex lists journaled runs.
type RunIndex interface {
	ListRuns(ctx context.Context, symbol string) ([]journal.RunSummary, error)
	GetResult(ctx context.Context, runID string) (result.BacktestResult, error)
}

// Server wires the routes to their backing stores. Results and Runs are
// optional; their routes answer 404 when unset.
type Server struct {
	Tracker     *portfolio.Tracker
	Results     ResultStore
	Runs        RunIndex
	CORSOrigins []string
	Logger      *log.Logger
}

// Handler builds the router wrapped in the CORS policy.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.CustomRecovery(s.recovered))
	router.Use(s.logRequests())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/positions", s.listPositions)
	router.GET("/positions/:symbol/unrealized", s.unrealized)
	router.GET("/pnl", s.realized)
	router.GET("/results/:symbol/:date", s.getResult)
	router.GET("/runs", s.listRuns)
	router.GET("/runs/:id", s.getRun)

	router.NoRoute(func(c *gin.Context) {
		abort(c, http.StatusNotFound, "NOT_FOUND", "no route for "+c.Request.URL.Path)
	})

	origins := s.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}).Handler(router)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger().Printf("api listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

func (s *Server) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger().Printf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) recovered(c *gin.Context, v any) {
	s.logger().Printf("panic serving %s: %v", c.Request.URL.Path, v)
	abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: errorDetail{Code: code, Message: msg}})
}
