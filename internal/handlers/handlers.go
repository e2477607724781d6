package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/captcha-solver/internal/logging"
	"github.com/example/captcha-solver/internal/solver"
	"github.com/example/captcha-solver/internal/usecase"
)

const (
	serviceName    = "CAPTCHA Solver API"
	serviceVersion = "2.0"
	solverName     = "SimpleCaptchaSolver v" + serviceVersion
)

// DefaultMaxBodyBytes bounds the size of a /solve request body.
const DefaultMaxBodyBytes = 10 << 20

// SolveService is the use case surface the handlers depend on.
type SolveService interface {
	Solve(ctx context.Context, target string, options []string) (string, *solver.Result, error)
	GetMetricsSummary() *usecase.MetricsSummary
}

type solveRequest struct {
	Target  string   `json:"target"`
	Options []string `json:"options"`
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, svc SolveService, maxBodyBytes int64) {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": serviceName,
			"version": serviceVersion,
			"status":  "online",
			"endpoints": gin.H{
				"/health":  "GET - Health check",
				"/solve":   "POST - Solve CAPTCHA",
				"/metrics": "GET - Solve metrics",
			},
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, gin.H{"status": "ok", "solver": solverName})
	})

	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.GetMetricsSummary())
	})

	router.POST("/solve", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

		var req solveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"status": 0, "error": "request body too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"status": 0, "error": "invalid JSON body"})
			return
		}

		if req.Target == "" || req.Options == nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"status": 0,
				"error":  "Missing required fields: target, options",
			})
			return
		}

		requestID, result, err := svc.Solve(c.Request.Context(), req.Target, req.Options)
		if err != nil {
			_ = c.Error(err)
			status := http.StatusInternalServerError
			if usecase.IsPreconditionError(err) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"status": 0, "request_id": requestID, "error": logging.Cause(err)})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     1,
			"request_id": requestID,
			"result":     result,
		})
	})
}
