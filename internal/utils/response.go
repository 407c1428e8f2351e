package utils

import "github.com/gofiber/fiber/v2"

// Machine-readable error codes carried by failed responses.
const (
	CodeNoFile           = "NO_FILE"
	CodeInvalidFile      = "INVALID_FILE"
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeNoPolicy         = "NO_POLICY"
	CodeInvalidPolicy    = "INVALID_POLICY"
	CodeLLMUnavailable   = "LLM_UNAVAILABLE"
	CodeLLMTimeout       = "LLM_TIMEOUT"
	CodeLLMError         = "LLM_ERROR"
	CodeParseFailure     = "PARSE_FAILURE"
	CodeInvalidBody      = "INVALID_BODY"
	CodeMissingData      = "MISSING_DATA"
	CodeValidation       = "VALIDATION_ERROR"
	CodeCalculationError = "CALCULATION_ERROR"
	CodeRateLimited      = "RATE_LIMITED"
	CodeNotFound         = "NOT_FOUND"
	CodeServerError      = "SERVER_ERROR"
)

// APIResponse describes the common structure for API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// SendSuccess sends a successful JSON response with a message.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus sends a success payload using the provided HTTP status code.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if message == "" {
		message = "success"
	}
	if status == 0 {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// SendError sends an error JSON response with the given status code.
func SendError(c *fiber.Ctx, status int, message string) error {
	return SendErrorWithCode(c, status, "", message, nil)
}

// SendErrorWithCode sends an error response carrying a machine-readable code
// and optional details.
func SendErrorWithCode(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	if message == "" {
		message = "error"
	}
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(APIResponse{
		Success: false,
		Message: message,
		Code:    code,
		Details: details,
	})
}
