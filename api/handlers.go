package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rustyeddy/tradeplan/journal"
	"github.com/rustyeddy/tradeplan/portfolio"
)

// GET /positions?status=open|closed
func (s *Server) listPositions(c *gin.Context) {
	status := portfolio.Status(c.Query("status"))
	switch status {
	case "", portfolio.StatusOpen, portfolio.StatusClosed:
	default:
		abort(c, http.StatusBadRequest, "INVALID_PARAM", "status must be 'open' or 'closed'")
		return
	}

	positions, err := s.Tracker.List(c.Request.Context(), status)
	if err != nil {
		abort(c, http.StatusInternalServerError, "PORTFOLIO_ERROR", err.Error())
		return
	}
	if positions == nil {
		positions = []portfolio.Position{}
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions, "count": len(positions)})
}

// GET /positions/:symbol/unrealized?price=
func (s *Server) unrealized(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	raw := c.Query("price")
	if raw == "" {
		abort(c, http.StatusBadRequest, "MISSING_PARAM", "price query parameter is required")
		return
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price <= 0 {
		abort(c, http.StatusBadRequest, "INVALID_PARAM", "price must be a positive number")
		return
	}

	pnl, err := s.Tracker.UnrealizedPnL(c.Request.Context(), symbol, price)
	if err != nil {
		abort(c, http.StatusInternalServerError, "PORTFOLIO_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "price": price, "unrealized_pnl": pnl})
}

// GET /pnl
func (s *Server) realized(c *gin.Context) {
	pnl, err := s.Tracker.RealizedPnL(c.Request.Context())
	if err != nil {
		abort(c, http.StatusInternalServerError, "PORTFOLIO_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"realized_pnl": pnl})
}

// GET /results/:symbol/:date
func (s *Server) getResult(c *gin.Context) {
	if s.Results == nil {
		abort(c, http.StatusNotFound, "NOT_CONFIGURED", "no result store configured")
		return
	}

	r, err := s.Results.GetResult(strings.ToUpper(c.Param("symbol")), c.Param("date"))
	switch {
	case errors.Is(err, journal.ErrNotFound):
		abort(c, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	case errors.Is(err, journal.ErrBadKey):
		abort(c, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	case err != nil:
		abort(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, r)
}

// GET /runs?symbol=
func (s *Server) listRuns(c *gin.Context) {
	if s.Runs == nil {
		abort(c, http.StatusNotFound, "NOT_CONFIGURED", "no run journal configured")
		return
	}

	runs, err := s.Runs.ListRuns(c.Request.Context(), strings.ToUpper(c.Query("symbol")))
	if err != nil {
		abort(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}

	out := make([]gin.H, 0, len(runs))
	for _, r := range runs {
		out = append(out, gin.H{
			"run_id":       r.RunID,
			"created":      r.Created,
			"symbol":       r.Symbol,
			"start":        r.Start,
			"end":          r.End,
			"net_return":   r.NetReturn,
			"max_drawdown": r.MaxDrawdown,
			"trades":       r.Trades,
			"win_rate":     r.WinRate,
			"data_source":  r.DataSource,
		})
	}
	c.JSON(http.StatusOK, gin.H{"runs": out, "count": len(out)})
}

// GET /runs/:id
func (s *Server) getRun(c *gin.Context) {
	if s.Runs == nil {
		abort(c, http.StatusNotFound, "NOT_CONFIGURED", "no run journal configured")
		return
	}

	r, err := s.Runs.GetResult(c.Request.Context(), c.Param("id"))
	if errors.Is(err, journal.ErrNotFound) {
		abort(c, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if err != nil {
		abort(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, r)
}
