package api

import (
	"net/http"

	"github.com/bull/codeqa/internal/ingest"
	"github.com/labstack/echo/v4"
)

const (
	msgIngested       = "Ingested to Vector DB"
	msgIngestFailed   = "Failed to Ingest"
	msgGenerateFailed = "Failed to generate answer"
	msgInvalidBody    = "invalid request body"
)

// IngestRequest is the request body for POST /ingest.
type IngestRequest struct {
	RepoURL                string `json:"repo_url" validate:"required"`
	InsertCustomEmbeddings bool   `json:"insert_custom_embeddings"`
}

// GenerateRequest is the request body for POST /generate.
type GenerateRequest struct {
	Query   string `json:"query" validate:"required"`
	RepoURL string `json:"repo_url" validate:"required"`
}

// HealthResponse is the response body for GET /healthcheck.
type HealthResponse struct {
	Status string `json:"status"`
}

// InfoResponse reports a successful ingestion.
type InfoResponse struct {
	Info string `json:"Info"`
}

// ErrorResponse reports a failed request.
type ErrorResponse struct {
	Error string `json:"Error"`
}

func (s *Server) handleHealthcheck(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleIngest answers 201 for both a fresh and an already stored repository.
func (s *Server) handleIngest(c echo.Context) error {
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("Invalid ingest request", "error", err)
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidBody})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: validationMessage(err)})
	}

	mode := ingest.ModeFor(req.InsertCustomEmbeddings)
	result, err := s.ingester.Ingest(c.Request().Context(), req.RepoURL, mode)
	if err != nil {
		if ingest.IsInvalidURL(err) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgIngestFailed})
	}

	s.logger.Debug("Ingest request served", "repo", result.RepoName, "status", string(result.Status))
	return c.JSON(http.StatusCreated, InfoResponse{Info: msgIngested})
}

// handleGenerate responds with the answer text as a bare JSON string.
func (s *Server) handleGenerate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("Invalid generate request", "error", err)
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidBody})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: validationMessage(err)})
	}

	answer, err := s.answerer.Answer(c.Request().Context(), req.Query, req.RepoURL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgGenerateFailed})
	}
	return c.JSON(http.StatusOK, answer.Text)
}
