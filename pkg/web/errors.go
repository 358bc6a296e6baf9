package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/hirezen/stageflow/pkg/transitions"
	"github.com/moogar0880/problems"
)

// evaluationError reports a failed evaluation in the {success, error} envelope.
// Input errors are 400; everything else, not-found included, is 500.
func evaluationError(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	if transitions.IsInvalidRequest(err) {
		status = fiber.StatusBadRequest
	}

	return c.Status(status).JSON(ErrorResponse{Success: false, Error: err.Error()})
}

func evaluationBadRequest(c fiber.Ctx, detail string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Success: false, Error: detail})
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}
