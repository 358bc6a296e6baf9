// Package web provides the HTTP handlers of the transition API.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/persistence"
	"github.com/hirezen/stageflow/pkg/transitions"
)

const (
	defaultExecutionsLimit = 50
	maxExecutionsLimit     = 500
)

// Orchestrator runs a transition evaluation.
type Orchestrator interface {
	Evaluate(ctx context.Context, req transitions.Request) (*transitions.Result, error)
}

type APIHandlers struct {
	orchestrator Orchestrator
	persistence  persistence.Persistence
	stages       models.StageCatalog
	validator    *validator.Validate
}

func NewAPIHandlers(
	orchestrator Orchestrator,
	persistence persistence.Persistence,
	stages models.StageCatalog,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		orchestrator: orchestrator,
		persistence:  persistence,
		stages:       stages,
		validator:    validator,
	}
}

// Register mounts the API routes on router.
func (h *APIHandlers) Register(router fiber.Router) {
	v1 := router.Group("/v1")
	v1.Post("/transitions/evaluate", h.EvaluateTransitions)
	v1.Get("/executions", h.ListExecutions)
	v1.Get("/rules", h.ListRules)
	v1.Get("/stages", h.ListStages)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) EvaluateTransitions(c fiber.Ctx) error {
	var req EvaluateTransitionsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return evaluationBadRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return evaluationBadRequest(c, err.Error())
	}

	result, err := h.orchestrator.Evaluate(c.Context(), req.ToRequest())
	if err != nil {
		return evaluationError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ListExecutions(c fiber.Ctx) error {
	candidateID := c.Query("candidate_id")
	if candidateID == "" {
		return badRequest(c, "candidate_id is required")
	}

	limit := defaultExecutionsLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}

		limit = min(parsed, maxExecutionsLimit)
	}

	executions, err := h.persistence.ExecutionRepository().ListByCandidate(c.Context(), candidateID, limit)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(ExecutionsResponse{CandidateID: candidateID, Executions: executions})
}

func (h *APIHandlers) ListRules(c fiber.Ctx) error {
	var (
		rules []*models.TransitionRule
		err   error
	)

	if fromStage := c.Query("from_stage"); fromStage != "" {
		rules, err = h.persistence.RuleRepository().ListEnabledByStage(c.Context(), fromStage)
	} else {
		rules, err = h.persistence.RuleRepository().ListEnabled(c.Context())
	}

	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(RulesResponse{Rules: rules})
}

func (h *APIHandlers) ListStages(c fiber.Ctx) error {
	return c.JSON(h.stages)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Stageflow API is healthy"
	httpStatus := http.StatusOK
	repositoryCheck := "ok"

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Stageflow API is unhealthy"
		httpStatus = http.StatusInternalServerError
		repositoryCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
