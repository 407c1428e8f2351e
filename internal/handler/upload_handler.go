package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/grade-predictor-api/internal/extraction"
	"github.com/noah-isme/grade-predictor-api/internal/models"
	"github.com/noah-isme/grade-predictor-api/internal/observability"
	"github.com/noah-isme/grade-predictor-api/internal/service"
	"github.com/noah-isme/grade-predictor-api/internal/utils"
	"github.com/noah-isme/grade-predictor-api/pkg/ai"
)

const defaultMaxUploadBytes = 16 * 1024 * 1024

var errFileTooLarge = errors.New("file exceeds maximum allowed size")

// UploadHandler accepts syllabus and gradebook documents.
type UploadHandler struct {
	syllabus service.SyllabusService
	grades   service.GradesService
	maxBytes int64
	logger   zerolog.Logger
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(syllabus service.SyllabusService, grades service.GradesService, maxBytes int, logger zerolog.Logger) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &UploadHandler{
		syllabus: syllabus,
		grades:   grades,
		maxBytes: int64(maxBytes),
		logger:   logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register wires upload routes. Guards such as a rate limiter run before
// each upload and only on these routes.
func (h *UploadHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Post("/upload-syllabus", chain(guards, h.uploadSyllabus)...)
	router.Post("/upload-grades", chain(guards, h.uploadGrades)...)
}

func chain(guards []fiber.Handler, final fiber.Handler) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(guards)+1)
	handlers = append(handlers, guards...)
	return append(handlers, final)
}

func (h *UploadHandler) uploadSyllabus(c *fiber.Ctx) error {
	file, payload, failed := h.readUpload(c)
	if failed != nil {
		return failed()
	}

	policy, err := h.syllabus.Parse(c.UserContext(), file.Filename, payload)
	if err != nil {
		return h.handleError(c, err, "syllabus", "Only PDF and TXT files are accepted for the syllabus.")
	}
	return utils.SendSuccess(c, "syllabus parsed", policy)
}

func (h *UploadHandler) uploadGrades(c *fiber.Ctx) error {
	file, payload, failed := h.readUpload(c)
	if failed != nil {
		return failed()
	}

	rawPolicy := strings.TrimSpace(c.FormValue("grading_policy"))
	if rawPolicy == "" {
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeNoPolicy, "grading_policy form field is required", nil)
	}
	var policy models.GradingPolicy
	if err := json.Unmarshal([]byte(rawPolicy), &policy); err != nil {
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeInvalidPolicy, "grading_policy is not valid JSON", nil)
	}

	result, err := h.grades.Parse(c.UserContext(), file.Filename, payload, policy)
	if err != nil {
		return h.handleError(c, err, "grades", "Only PDF, XLSX and CSV files are accepted for grades.")
	}
	return utils.SendSuccess(c, "grades parsed", result)
}

// readUpload returns the uploaded file and its bytes, or a responder for the
// failure.
func (h *UploadHandler) readUpload(c *fiber.Ctx) (*multipart.FileHeader, []byte, func() error) {
	file, err := c.FormFile("file")
	if err != nil || file == nil || strings.TrimSpace(file.Filename) == "" {
		return nil, nil, func() error {
			return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeNoFile, "No file uploaded", nil)
		}
	}

	payload, err := h.readFile(file)
	if err != nil {
		if errors.Is(err, errFileTooLarge) {
			observability.UploadRejected().WithLabelValues("size").Inc()
			return nil, nil, func() error {
				return utils.SendErrorWithCode(c, fiber.StatusRequestEntityTooLarge, utils.CodeFileTooLarge, err.Error(), nil)
			}
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to read upload")
		return nil, nil, func() error {
			return utils.SendErrorWithCode(c, fiber.StatusInternalServerError, utils.CodeServerError, "failed to read upload", nil)
		}
	}
	return file, payload, nil
}

func (h *UploadHandler) readFile(file *multipart.FileHeader) ([]byte, error) {
	if file.Size > h.maxBytes {
		return nil, errFileTooLarge
	}
	handle, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	payload, err := io.ReadAll(io.LimitReader(handle, h.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > h.maxBytes {
		return nil, errFileTooLarge
	}
	return payload, nil
}

func (h *UploadHandler) handleError(c *fiber.Ctx, err error, document, typeHint string) error {
	var failure *service.ParseFailure
	switch {
	case errors.Is(err, extraction.ErrUnsupportedType):
		observability.UploadRejected().WithLabelValues("type").Inc()
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeInvalidFile, typeHint, nil)
	case errors.Is(err, extraction.ErrUnreadable):
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeInvalidFile, "The "+document+" file could not be read.", nil)
	case errors.Is(err, extraction.ErrNoText):
		return utils.SendErrorWithCode(c, fiber.StatusUnprocessableEntity, utils.CodeParseFailure, "No text could be extracted from the "+document+" file.", fiber.Map{"raw_response": err.Error()})
	case errors.As(err, &failure):
		requestLogger(h.logger, c).Warn().Str("document", document).Str("reason", failure.Reason).Msg("model output could not be parsed")
		return utils.SendErrorWithCode(c, fiber.StatusUnprocessableEntity, utils.CodeParseFailure, "The language model could not parse the "+document+".", fiber.Map{"raw_response": failure.Raw})
	case errors.Is(err, ai.ErrUnavailable):
		return utils.SendErrorWithCode(c, fiber.StatusServiceUnavailable, utils.CodeLLMUnavailable, "The language model service is not reachable. Make sure it is running and try again.", nil)
	case errors.Is(err, ai.ErrTimeout):
		return utils.SendErrorWithCode(c, fiber.StatusServiceUnavailable, utils.CodeLLMTimeout, "The language model did not answer in time. The model may still be loading; try again shortly.", nil)
	case errors.Is(err, ai.ErrUpstream):
		requestLogger(h.logger, c).Error().Err(err).Str("document", document).Msg("language model returned an error")
		return utils.SendErrorWithCode(c, fiber.StatusBadGateway, utils.CodeLLMError, "The language model returned an error.", nil)
	default:
		requestLogger(h.logger, c).Error().Err(err).Str("document", document).Msg("upload processing failed")
		return utils.SendErrorWithCode(c, fiber.StatusInternalServerError, utils.CodeServerError, "upload processing failed", nil)
	}
}
