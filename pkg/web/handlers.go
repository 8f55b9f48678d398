// Package web provides HTTP handlers and REST API endpoints for flying operations.
package web

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/flightline/pkg/maintenance"
	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/persistence"
	"github.com/dukex/flightline/pkg/session"
	"github.com/dukex/flightline/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	logger     *slog.Logger
	controller *workflow.Controller
	jobCards   *maintenance.Service
	store      persistence.Persistence
	sessions   session.Store
	validator  *validator.Validate
}

func NewAPIHandlers(
	logger *slog.Logger,
	controller *workflow.Controller,
	jobCards *maintenance.Service,
	store persistence.Persistence,
	sessions session.Store,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		logger:     logger.With("module", "web"),
		controller: controller,
		jobCards:   jobCards,
		store:      store,
		sessions:   sessions,
		validator:  validator,
	}
}

// Register mounts every flying operations route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/personnel", h.SearchPersonnel)

	router.Get("/session/aircraft", h.GetSessionAircraft)
	router.Put("/session/aircraft", h.SelectAircraft)
	router.Delete("/session/aircraft", h.ClearSessionAircraft)

	router.Get("/aircraft", h.ListAircraft)
	router.Get("/aircraft/:id", h.GetAircraft)

	ops := router.Group("/operations")
	ops.Post("/start", h.Start)
	ops.Get("/state", h.State)
	ops.Post("/reset", h.Reset)
	ops.Get("/history", h.History)
	ops.Post("/stages/:stage/enter", h.EnterStage)

	ops.Patch("/acceptance", h.UpdateAcceptance)
	ops.Post("/acceptance/sign_pilot", h.SignAcceptance)

	ops.Put("/post-flying/outcome", h.RecordOutcome)
	ops.Put("/post-flying/data", h.RecordFlightData)
	ops.Post("/post-flying/sign_pilot", h.SignPostFlightPilot)
	ops.Post("/post-flying/sign_engineer", h.SignEngineer)

	svc := ops.Group("/:kind")
	svc.Post("/fsi_auth", h.AuthenticateFSI)
	svc.Post("/trades", h.SelectTrade)
	svc.Delete("/trades/:trade", h.DeselectTrade)
	svc.Post("/assignments", h.Assign)
	svc.Delete("/assignments/:trade/:pno", h.Unassign)
	svc.Put("/supervisor", h.SetSupervisor)
	svc.Post("/advance", h.Advance)
	svc.Put("/readings", h.EnterReadings)
	svc.Post("/readings/sign", h.AuthenticateReadings)
	svc.Post("/sign_tradesman", h.SignTradesman)
	svc.Post("/sign_supervisor", h.SignSupervisor)
	svc.Post("/sign_fsi", h.FinalApprove)

	cards := router.Group("/job-cards")
	cards.Get("/", h.ListJobCards)
	cards.Post("/", h.CreateJobCard)
	cards.Get("/:id", h.GetJobCard)
	cards.Delete("/:id", h.DeleteJobCard)
	cards.Post("/:id/jobs", h.AddJob)
	cards.Patch("/:id/jobs/:jobId", h.UpdateJobRemarks)
	cards.Delete("/:id/jobs/:jobId", h.RemoveJob)
	cards.Post("/:id/jobs/:jobId/sign_tradesman", h.SignJobTradesman)
	cards.Post("/:id/jobs/:jobId/sign_supervisor", h.SignJobSupervisor)
	cards.Post("/:id/jobs/:jobId/remove_signature", h.RemoveJobSignature)
	cards.Post("/:id/sign_ato", h.SignATO)

	router.Get("/maintenance/next-due", h.NextDue)
	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck := "ok"
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.store.HealthCheck(c.Context()); err != nil {
		repositoryCheck = err.Error()
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// bind decodes and validates the JSON body into req. On failure the problem
// response has already been written and the returned error must be returned as is.
func (h *APIHandlers) bind(c fiber.Ctx, req any) (bool, error) {
	if err := c.Bind().JSON(req); err != nil {
		return false, badRequest(c, "Invalid JSON format")
	}

	if err := opserr.Validate(h.validator, req); err != nil {
		return false, handleServiceError(c, h.logger, err)
	}

	return true, nil
}

// reply writes value, or err as a problem.
func (h *APIHandlers) reply(c fiber.Ctx, value any, err error) error {
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(value)
}

// aircraftID returns the aircraft selected by the request's session.
func (h *APIHandlers) aircraftID(c fiber.Ctx) (string, error) {
	sessionID := strings.TrimSpace(c.Get(SessionHeader))
	if sessionID == "" {
		return "", opserr.New(opserr.CodeNoAircraftSelected, "%s header is required", SessionHeader)
	}

	return h.sessions.Aircraft(c.Context(), sessionID)
}

func (h *APIHandlers) SearchPersonnel(c fiber.Ctx) error {
	candidates, err := h.controller.Assignments().Search(c.Context(), c.Query("query"))

	return h.reply(c, candidates, err)
}

func (h *APIHandlers) GetSessionAircraft(c fiber.Ctx) error {
	id, err := h.aircraftID(c)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	aircraft, err := h.store.AircraftRepository().ByID(c.Context(), id)

	return h.reply(c, SessionResponse{SessionID: c.Get(SessionHeader), Aircraft: aircraft}, err)
}

func (h *APIHandlers) SelectAircraft(c fiber.Ctx) error {
	sessionID := strings.TrimSpace(c.Get(SessionHeader))
	if sessionID == "" {
		return badRequest(c, SessionHeader+" header is required")
	}

	var req SelectAircraftRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	aircraft, err := h.store.AircraftRepository().ByID(c.Context(), req.AircraftID)
	if err != nil {
		if persistence.IsAircraftNotFound(err) {
			return notFound(c, "aircraft "+req.AircraftID+" not found")
		}

		return handleServiceError(c, h.logger, err)
	}

	if err := h.sessions.SetAircraft(c.Context(), sessionID, aircraft.ID); err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(SessionResponse{SessionID: sessionID, Aircraft: aircraft})
}

func (h *APIHandlers) ClearSessionAircraft(c fiber.Ctx) error {
	sessionID := strings.TrimSpace(c.Get(SessionHeader))
	if sessionID == "" {
		return badRequest(c, SessionHeader+" header is required")
	}

	if err := h.sessions.Clear(c.Context(), sessionID); err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ListAircraft(c fiber.Ctx) error {
	aircraft, err := h.store.AircraftRepository().All(c.Context())

	return h.reply(c, aircraft, err)
}

func (h *APIHandlers) GetAircraft(c fiber.Ctx) error {
	aircraft, err := h.store.AircraftRepository().ByID(c.Context(), c.Params("id"))
	if persistence.IsAircraftNotFound(err) {
		return notFound(c, "aircraft "+c.Params("id")+" not found")
	}

	return h.reply(c, aircraft, err)
}

// withAircraft resolves the session aircraft and passes it to fn.
func (h *APIHandlers) withAircraft(c fiber.Ctx, fn func(aircraftID string) (any, error)) error {
	id, err := h.aircraftID(c)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	value, err := fn(id)

	return h.reply(c, value, err)
}

func (h *APIHandlers) Start(c fiber.Ctx) error {
	return h.withAircraft(c, func(id string) (any, error) {
		return h.controller.Start(c.Context(), id)
	})
}

func (h *APIHandlers) State(c fiber.Ctx) error {
	return h.withAircraft(c, func(id string) (any, error) {
		return h.controller.State(c.Context(), id)
	})
}

func (h *APIHandlers) Reset(c fiber.Ctx) error {
	return h.withAircraft(c, func(id string) (any, error) {
		return h.controller.Reset(c.Context(), id)
	})
}

func (h *APIHandlers) History(c fiber.Ctx) error {
	return h.withAircraft(c, func(id string) (any, error) {
		return h.controller.History(c.Context(), id)
	})
}

func (h *APIHandlers) EnterStage(c fiber.Ctx) error {
	stage := models.Stage(strings.ToUpper(strings.ReplaceAll(c.Params("stage"), "-", "_")))

	return h.withAircraft(c, func(id string) (any, error) {
		return h.controller.EnterStage(c.Context(), id, stage)
	})
}

// servicingKind parses the :kind route parameter.
func servicingKind(c fiber.Ctx) (models.ServicingKind, bool) {
	switch strings.ToLower(c.Params("kind")) {
	case "bfs":
		return models.ServicingBFS, true
	case "afs":
		return models.ServicingAFS, true
	default:
		return "", false
	}
}

// servicing binds the body into req (when not nil), resolves the kind and the session
// aircraft, and replies with the record fn returns.
func (h *APIHandlers) servicing(
	c fiber.Ctx,
	req any,
	fn func(aircraftID string, kind models.ServicingKind) (*models.ServicingRecord, error),
) error {
	kind, ok := servicingKind(c)
	if !ok {
		return notFound(c, "unknown servicing kind "+c.Params("kind"))
	}

	if req != nil {
		if ok, err := h.bind(c, req); !ok {
			return err
		}
	}

	return h.withAircraft(c, func(id string) (any, error) {
		return fn(id, kind)
	})
}

func (h *APIHandlers) AuthenticateFSI(c fiber.Ctx) error {
	var req SignRequest

	return h.servicing(c, &req, func(id string, kind models.ServicingKind) (*models.ServicingRecord, error) {
		return h.controller.AuthenticateFSI(c.Context(), id, kind, req.PNO, req.PIN)
	})
}

func (h *APIHandlers) SelectTrade(c fiber.Ctx) error {
	var req TradeRequest

	return h.servicing(c, &req, func(id string, kind models.ServicingKind) (*models.ServicingRecord, error) {
		return h.controller.SelectTrade(c.Context(), id, kind, req.Trade)
	})
}

func (h *APIHandlers) DeselectTrade(c fiber.Ctx) error {
	trade := models.Trade(strings.ToUpper(c.Params("trade")))

	return h.servicing(c, nil, func(id string, kind models.ServicingKind) (*models.ServicingRecord, error) {
		return h.controller.DeselectTrade(c.Context(), id, kind, trade)
	})
}

func (h *APIHandlers) Assign(c fiber.Ctx) error {
	var req AssignRequest

	return h.servicing(c, &req, func(id string, kind models.ServicingKind) (*models.ServicingRecord, error) {
		return h.controller.Assign(c.Context(), id, kind, req.Trade, req.PNO)
	})
}

func (h *APIHandlers) Unassign(c fiber.Ctx) error {
	trade := models.Trade(strings.ToUpper(c.Params("trade")))
	pno := c.Params("pno")

	return h.servicing(c, nil, func(id string, kind models.ServicingKind) (*models.ServicingRecord, error) {
		return h.controller.Unassign(c.Context(), id, kind, trade, pno)
	})
}

func (h *APIHandlers) SetSupervisor(c fiber.Ctx) error {
	var req SupervisorRequest

	return h.servicing(c, &req, func(id string, kind models.ServicingKind) (*models.ServicingRecord, error) {
		return h.controller.SetSupervisor(c.Context(), id, kind, req.PNO)
	})
}

func (h *APIHandlers) Advance(c fiber.Ctx) error {
	return h.servicing(c, nil, func(id string, kind models.ServicingKind) (*models.ServicingRecord, error) {
		return h.controller.Advance(c.Context(), id, kind)
	})
}

func (h *APIHandlers) EnterReadings(c fiber.Ctx) error {
	var req models.Readings

	return h.servicing(c, &req, func(id string, kind models.ServicingKind) (*models.ServicingRecord, error) {
		return h.controller.EnterReadings(c.Context(), id, kind, req)
	})
}

func (h *APIHandlers) AuthenticateReadings(c fiber.Ctx) error {
	var req SignRequest

	return h.servicing(c, &req, func(id string, kind models.ServicingKind) (*models.ServicingRecord, error) {
		return h.controller.AuthenticateReadings(c.Context(), id, kind, req.PNO, req.PIN)
	})
}

func (h *APIHandlers) SignTradesman(c fiber.Ctx) error {
	var req TradeSignRequest

	return h.servicing(c, &req, func(id string, kind models.ServicingKind) (*models.ServicingRecord, error) {
		return h.controller.SignTradesman(c.Context(), id, kind, req.Trade, req.PNO, req.PIN)
	})
}

func (h *APIHandlers) SignSupervisor(c fiber.Ctx) error {
	var req SignRequest

	return h.servicing(c, &req, func(id string, kind models.ServicingKind) (*models.ServicingRecord, error) {
		return h.controller.SignSupervisor(c.Context(), id, kind, req.PNO, req.PIN)
	})
}

func (h *APIHandlers) FinalApprove(c fiber.Ctx) error {
	var req SignRequest

	return h.servicing(c, &req, func(id string, kind models.ServicingKind) (*models.ServicingRecord, error) {
		return h.controller.FinalApprove(c.Context(), id, kind, req.PNO, req.PIN)
	})
}

func (h *APIHandlers) UpdateAcceptance(c fiber.Ctx) error {
	var req workflow.AcceptanceUpdate
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	return h.withAircraft(c, func(id string) (any, error) {
		return h.controller.UpdateAcceptance(c.Context(), id, req)
	})
}

func (h *APIHandlers) SignAcceptance(c fiber.Ctx) error {
	var req SignRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	return h.withAircraft(c, func(id string) (any, error) {
		return h.controller.SignAcceptance(c.Context(), id, req.PNO, req.PIN)
	})
}

func (h *APIHandlers) RecordOutcome(c fiber.Ctx) error {
	var req OutcomeRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	return h.withAircraft(c, func(id string) (any, error) {
		return h.controller.RecordOutcome(c.Context(), id, req.FlightStatus, req.DefectStatus)
	})
}

func (h *APIHandlers) RecordFlightData(c fiber.Ctx) error {
	var req models.FlightData
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	return h.withAircraft(c, func(id string) (any, error) {
		return h.controller.RecordFlightData(c.Context(), id, req)
	})
}

func (h *APIHandlers) SignPostFlightPilot(c fiber.Ctx) error {
	var req SignRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	return h.withAircraft(c, func(id string) (any, error) {
		return h.controller.AuthenticatePilotData(c.Context(), id, req.PNO, req.PIN)
	})
}

func (h *APIHandlers) SignEngineer(c fiber.Ctx) error {
	var req SignRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	return h.withAircraft(c, func(id string) (any, error) {
		return h.controller.SignEngineer(c.Context(), id, req.PNO, req.PIN)
	})
}

func (h *APIHandlers) ListJobCards(c fiber.Ctx) error {
	return h.withAircraft(c, func(id string) (any, error) {
		return h.jobCards.ByAircraft(c.Context(), id)
	})
}

func (h *APIHandlers) CreateJobCard(c fiber.Ctx) error {
	var req CreateJobCardRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	id, err := h.aircraftID(c)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	card, err := h.jobCards.Create(c.Context(), id, req.Type, req.FromTemplate)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(card)
}

func (h *APIHandlers) GetJobCard(c fiber.Ctx) error {
	card, err := h.jobCards.Get(c.Context(), c.Params("id"))

	return h.reply(c, card, err)
}

func (h *APIHandlers) DeleteJobCard(c fiber.Ctx) error {
	if err := h.jobCards.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) AddJob(c fiber.Ctx) error {
	var req maintenance.JobInput
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	card, err := h.jobCards.AddJob(c.Context(), c.Params("id"), req)

	return h.reply(c, card, err)
}

func (h *APIHandlers) UpdateJobRemarks(c fiber.Ctx) error {
	var req RemarksRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	card, err := h.jobCards.UpdateRemarks(c.Context(), c.Params("id"), c.Params("jobId"), req.Remarks)

	return h.reply(c, card, err)
}

func (h *APIHandlers) RemoveJob(c fiber.Ctx) error {
	card, err := h.jobCards.RemoveJob(c.Context(), c.Params("id"), c.Params("jobId"))

	return h.reply(c, card, err)
}

func (h *APIHandlers) SignJobTradesman(c fiber.Ctx) error {
	var req SignRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	card, err := h.jobCards.SignTradesman(c.Context(), c.Params("id"), c.Params("jobId"), req.PNO, req.PIN)

	return h.reply(c, card, err)
}

func (h *APIHandlers) SignJobSupervisor(c fiber.Ctx) error {
	var req SignRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	card, err := h.jobCards.SignSupervisor(c.Context(), c.Params("id"), c.Params("jobId"), req.PNO, req.PIN)

	return h.reply(c, card, err)
}

func (h *APIHandlers) RemoveJobSignature(c fiber.Ctx) error {
	var req RemoveSignatureRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	card, err := h.jobCards.RemoveSignature(c.Context(), c.Params("id"), c.Params("jobId"), req.Slot, req.PNO)

	return h.reply(c, card, err)
}

func (h *APIHandlers) SignATO(c fiber.Ctx) error {
	var req SignRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	card, err := h.jobCards.SignATO(c.Context(), c.Params("id"), req.PNO, req.PIN)

	return h.reply(c, card, err)
}

func (h *APIHandlers) NextDue(c fiber.Ctx) error {
	return h.withAircraft(c, func(id string) (any, error) {
		return h.jobCards.NextDue(c.Context(), id)
	})
}
