package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/marketlens/marketlens/internal/core"
)

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
}

// SuccessResponse is the standard success response format.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// JSON writes a success response with data.
func JSON(w http.ResponseWriter, status int, data any) {
	resp := SuccessResponse{
		Data: data,
		Meta: Meta{Timestamp: time.Now().UTC()},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// FromError writes an error response at the HTTP status implied by the
// error's domain code. Errors without a code map to 500.
func FromError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		status = httpStatus(coreErr.Code)
	}
	Error(w, status, err)
}

func httpStatus(code string) int {
	switch code {
	case core.ErrInvalidInput.Code, core.ErrConfigInvalid.Code, core.ErrConfigMissing.Code:
		return http.StatusBadRequest
	case core.ErrSymbolNotFound.Code, core.ErrJobNotFound.Code,
		core.ErrRunNotFound.Code, core.ErrNoData.Code:
		return http.StatusNotFound
	case core.ErrInsufficientData.Code:
		return http.StatusUnprocessableEntity
	case core.ErrCollectorFailed.Code:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, err error) {
	detail := ErrorDetail{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		detail.Code = coreErr.Code
		detail.Message = coreErr.Message
		if coreErr.Cause != nil {
			detail.Cause = coreErr.Cause.Error()
		}
	}

	resp := ErrorResponse{Error: detail}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
