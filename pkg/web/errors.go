package web

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/persistence"
	"github.com/dukex/flightline/pkg/session"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// Problem is an RFC 7807 problem extended with the operation error code and the
// slots, trades or fields that caused it.
type Problem struct {
	*problems.Problem

	Code    opserr.Code `json:"code,omitempty"`
	Missing []string    `json:"missing,omitempty"`
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusNotFound).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// statusOf maps an operation error to its HTTP status.
func statusOf(e *opserr.Error) int {
	switch e.Code {
	case opserr.CodeTooManyAttempts:
		return fiber.StatusTooManyRequests
	case opserr.CodeNoAircraftSelected:
		return fiber.StatusBadRequest
	}

	switch e.Kind {
	case opserr.KindValidation:
		return fiber.StatusBadRequest
	case opserr.KindAuth:
		return fiber.StatusForbidden
	case opserr.KindState:
		return fiber.StatusConflict
	case opserr.KindNotFound:
		return fiber.StatusNotFound
	case opserr.KindUncertain:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// handleServiceError writes err as a problem response. Unexpected errors are logged
// and reported without details.
func handleServiceError(c fiber.Ctx, logger *slog.Logger, err error) error {
	var opErr *opserr.Error

	switch {
	case errors.As(err, &opErr):
		status := statusOf(opErr)

		problem := Problem{
			Problem: problems.NewStatusProblem(status).
				WithInstance(c.Path()).
				WithType(strings.ToLower(string(opErr.Code))).
				WithDetail(opErr.Error()),
			Code:    opErr.Code,
			Missing: opErr.Missing,
		}

		return c.Status(status).JSON(problem)

	case errors.Is(err, session.ErrNoAircraft):
		return handleServiceError(c, logger, opserr.New(opserr.CodeNoAircraftSelected, "no aircraft selected"))

	case persistence.IsNotFound(err):
		return notFound(c, err.Error())

	default:
		logger.ErrorContext(c.Context(), "request failed", "path", c.Path(), "error", err)

		return internalError(c, errors.New("internal server error"))
	}
}
