package api

import (
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/ocrun/pkg/accel"
)

// CardInfo is the static description of the served card.
type CardInfo struct {
	Identifier string       `json:"identifier"`
	ActionType string       `json:"action_type"`
	Notify     string       `json:"notify"`
	Layout     accel.Layout `json:"layout"`
}

// CreateJobRequest is the POST /v1/jobs body.
type CreateJobRequest struct {
	Payload string `json:"payload"`
}

type Server struct {
	store  *JobStore
	runner Runner
	info   CardInfo
	clock  func() time.Time
}

func NewServer(store *JobStore, runner Runner, info CardInfo) *Server {
	if store == nil {
		store = NewJobStore()
	}
	return &Server{
		store:  store,
		runner: runner,
		info:   info,
		clock:  time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/card", s.handleCard)
	e.GET("/v1/jobs", s.handleListJobs)
	e.GET("/v1/jobs/:id", s.handleGetJob)
	e.POST("/v1/jobs", s.handleCreateJob)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCard(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.info)
}

func (s *Server) handleListJobs(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"jobs": s.store.List()})
}

func (s *Server) handleGetJob(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeError(c, http.StatusNotFound, "unknown job id")
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleCreateJob(c *echo.Context) error {
	if s.runner == nil {
		return writeError(c, http.StatusInternalServerError, "no action attached")
	}
	req, err := decodeJSON[CreateJobRequest](c.Request().Body)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	if req.Payload == "" {
		return writeError(c, http.StatusBadRequest, "payload is required")
	}

	rec := JobRecord{
		ID:        NewID(),
		CreatedAt: s.clock(),
		SizeBytes: len(req.Payload),
	}
	res, runErr := s.runner.Run(c.Request().Context(), []byte(req.Payload))
	rec.State = res.State
	rec.ElapsedUS = res.Elapsed.Microseconds()
	if runErr != nil {
		rec.Error = runErr.Error()
		s.store.Add(rec)
		return c.JSON(http.StatusBadGateway, rec)
	}
	rec.Retc = res.Retc.String()
	rec.Output = string(res.Output)
	s.store.Add(rec)
	return c.JSON(http.StatusOK, rec)
}

func writeError(c *echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]any{
		"error": map[string]string{"message": msg},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var v T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	err := dec.Decode(&v)
	return v, err
}
