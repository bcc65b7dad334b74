package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promorag/internal/embeddings"
	"github.com/fyrsmithlabs/promorag/internal/logging"
	"github.com/fyrsmithlabs/promorag/internal/pipeline"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleAsk(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid ask request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	answer, err := s.retriever.Ask(ctx, req.Question, req.History...)
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuestion):
		return echo.NewHTTPError(http.StatusBadRequest, "question field is required")
	case err != nil:
		s.logger.Error("ask failed", append(logging.ContextFields(ctx), zap.Error(err))...)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, answer)
}

func (s *Server) handleClassify(c echo.Context) error {
	q, err := s.bindQuery(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ClassifyResponse{
		Query:          q,
		Classification: s.retriever.Classify(q),
	})
}

// handleSearch ranks candidates for a query without calling the LLM.
func (s *Server) handleSearch(c echo.Context) error {
	q, err := s.bindQuery(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	candidates, cls, err := s.retriever.Search(ctx, q)
	if err != nil {
		s.logger.Error("search failed", append(logging.ContextFields(ctx), zap.Error(err))...)
		if errors.Is(err, embeddings.ErrEmbeddingFailed) {
			return echo.NewHTTPError(http.StatusBadGateway, "embedding service unavailable")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, SearchResponse{
		Query:      q,
		Type:       cls.Type,
		Params:     cls.Params,
		Candidates: candidates,
	})
}

func (s *Server) bindQuery(c echo.Context) (string, error) {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid query request", zap.Error(err))
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}
	return q, nil
}
