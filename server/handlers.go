package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/stepflow/errors"
	"github.com/kbukum/stepflow/observability"
	"github.com/kbukum/stepflow/validation"
	"github.com/kbukum/stepflow/version"
)

const maxListLimit = 200

// RunRequest is the body of POST /api/v1/workflows/:name/runs.
type RunRequest struct {
	Subject string `json:"subject"`
}

func (s *Server) registerRoutes() {
	s.engine.NoRoute(func(c *gin.Context) {
		RespondWithError(c, apperrors.NotFound("route", c.Request.URL.Path))
	})
	s.engine.NoMethod(func(c *gin.Context) {
		RespondWithError(c, apperrors.New(apperrors.ErrCodeInvalidInput,
			"Method not allowed", http.StatusMethodNotAllowed))
	})

	s.engine.GET("/health", s.health)
	s.engine.GET("/version", s.version)

	api := s.engine.Group("/api/v1")
	api.GET("/workflows", s.listWorkflows)
	api.POST("/workflows/:name/runs", s.startRun)
	api.GET("/runs", s.listRuns)
	api.GET("/runs/:id", s.getRun)
}

func (s *Server) health(c *gin.Context) {
	h := s.svc.Health(c.Request.Context())
	status := http.StatusOK
	if h.Status == observability.HealthStatusDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, h)
}

func (s *Server) version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}

func (s *Server) listWorkflows(c *gin.Context) {
	infos := s.svc.Workflows()
	RespondOKWithMeta(c, infos, &Meta{Count: len(infos)})
}

func (s *Server) startRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondWithError(c, apperrors.InvalidInput("body", err.Error()))
		return
	}

	run, err := s.svc.Run(c.Request.Context(), c.Param("name"), req.Subject)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondCreated(c, run)
}

func (s *Server) listRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		v := validation.New()
		if err != nil {
			v.AddError("limit", "must be an integer")
		} else {
			v.Between("limit", n, 1, maxListLimit)
		}
		if appErr := v.Validate(); appErr != nil {
			RespondWithError(c, appErr)
			return
		}
		limit = n
	}

	runs, err := s.svc.ListRuns(c.Request.Context(), limit)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOKWithMeta(c, runs, &Meta{Count: len(runs), Limit: limit})
}

func (s *Server) getRun(c *gin.Context) {
	id, err := validation.ParseUUID("id", c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	run, err := s.svc.GetRun(c.Request.Context(), id)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, run)
}
