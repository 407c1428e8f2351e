package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/grade-predictor-api/internal/dto"
	"github.com/noah-isme/grade-predictor-api/internal/service"
	"github.com/noah-isme/grade-predictor-api/internal/utils"
)

var errEmptyBody = errors.New("empty body")

// GradeHandler wires the grade calculation routes.
type GradeHandler struct {
	service service.GradeService
	logger  zerolog.Logger
}

// NewGradeHandler constructs the handler.
func NewGradeHandler(service service.GradeService, logger zerolog.Logger) *GradeHandler {
	return &GradeHandler{
		service: service,
		logger:  logger.With().Str("component", "grade_handler").Logger(),
	}
}

// Register attaches the calculation endpoints to the router group.
func (h *GradeHandler) Register(router fiber.Router) {
	router.Post("/calculate", h.calculate)
	router.Post("/what-if", h.whatIf)
	router.Post("/needed-scores", h.neededScores)
	router.Post("/scenarios", h.scenarios)
}

func (h *GradeHandler) calculate(c *fiber.Ctx) error {
	var req dto.CalculateRequest
	if err := decodeBody(c, &req); err != nil {
		return invalidBody(c)
	}

	result, err := h.service.Calculate(c.UserContext(), req)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "grade calculated", result)
}

func (h *GradeHandler) whatIf(c *fiber.Ctx) error {
	var req dto.WhatIfRequest
	if err := decodeBody(c, &req); err != nil {
		return invalidBody(c)
	}

	result, err := h.service.WhatIf(c.UserContext(), req)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "what-if grade calculated", result)
}

func (h *GradeHandler) neededScores(c *fiber.Ctx) error {
	var req dto.NeededScoresRequest
	if err := decodeBody(c, &req); err != nil {
		return invalidBody(c)
	}

	result, err := h.service.NeededScores(c.UserContext(), req)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "needed scores calculated", result)
}

func (h *GradeHandler) scenarios(c *fiber.Ctx) error {
	var req dto.ScenariosRequest
	if err := decodeBody(c, &req); err != nil {
		return invalidBody(c)
	}

	result, err := h.service.Scenarios(c.UserContext(), req)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "scenarios generated", result)
}

func (h *GradeHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrMissingData):
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeMissingData, err.Error(), nil)
	case isValidationError(err):
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, "grading policy is invalid", validationDetails(err))
	default:
		requestLogger(h.logger, c).Error().Err(err).Str("route", c.Path()).Msg("grade calculation failed")
		return utils.SendErrorWithCode(c, fiber.StatusInternalServerError, utils.CodeCalculationError, "grade calculation failed", nil)
	}
}

// decodeBody requires a non-empty body in a content type fiber can parse.
func decodeBody(c *fiber.Ctx, target interface{}) error {
	if len(c.Body()) == 0 {
		return errEmptyBody
	}
	return c.BodyParser(target)
}

func invalidBody(c *fiber.Ctx) error {
	return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeInvalidBody, "JSON body required", nil)
}
