package response

import (
	"encoding/json"
	"net/http"

	"boulder-editor/internal/domain"
)

type Response struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Notice  *domain.Notice `json:"notice,omitempty"`
}

func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	write(w, statusCode, Response{
		Success: statusCode < 400,
		Data:    data,
	})
}

// WithNotice writes data together with a user-facing notice.
func WithNotice(w http.ResponseWriter, statusCode int, data interface{}, notice *domain.Notice) {
	write(w, statusCode, Response{
		Success: statusCode < 400,
		Data:    data,
		Notice:  notice,
	})
}

func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

func Error(w http.ResponseWriter, statusCode int, err string) {
	write(w, statusCode, Response{
		Success: false,
		Error:   err,
		Notice:  &domain.Notice{Level: domain.NoticeError, Message: err},
	})
}

// CodedError is Error with a machine readable code.
func CodedError(w http.ResponseWriter, statusCode int, code, err string) {
	write(w, statusCode, Response{
		Success: false,
		Error:   err,
		Code:    code,
		Notice:  &domain.Notice{Level: domain.NoticeError, Message: err},
	})
}

func BadRequest(w http.ResponseWriter, err string) {
	Error(w, http.StatusBadRequest, err)
}

func Unauthorized(w http.ResponseWriter, err string) {
	Error(w, http.StatusUnauthorized, err)
}

func Forbidden(w http.ResponseWriter, err string) {
	Error(w, http.StatusForbidden, err)
}

func NotFound(w http.ResponseWriter, err string) {
	Error(w, http.StatusNotFound, err)
}

func Conflict(w http.ResponseWriter, err string) {
	Error(w, http.StatusConflict, err)
}

func InternalError(w http.ResponseWriter, err string) {
	Error(w, http.StatusInternalServerError, err)
}

func write(w http.ResponseWriter, statusCode int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
