package domain

import "fmt"

type SessionActions struct {
	CanMarkStart  bool `json:"can_mark_start"`
	CanMarkFinish bool `json:"can_mark_finish"`
	CanRemove     bool `json:"can_remove"`
	CanSave       bool `json:"can_save"`
}

type HoldState struct {
	HoldID     HoldID   `json:"hold_id"`
	MoveNumber int      `json:"move_number"`
	Role       HoldRole `json:"role"`
}

// SessionSnapshot is everything a renderer needs to redraw the editor.
type SessionSnapshot struct {
	Boulder         *Boulder         `json:"boulder"`
	SelectedHoldID  *HoldID          `json:"selected_hold_id"`
	Holds           []HoldState      `json:"holds"`
	Actions         SessionActions   `json:"actions"`
	Validation      *ValidationError `json:"validation,omitempty"`
	CatalogueLoaded bool             `json:"catalogue_loaded"`
	Stored          bool             `json:"stored"`
}

type UpdateMetadataRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=120"`
	Grade       *string `json:"grade" validate:"omitempty,max=16"`
	Style       *string `json:"style" validate:"omitempty,max=40"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type HoldGestureRequest struct {
	HoldID HoldID `json:"hold_id" validate:"required,max=128"`
}

type LoadBoulderRequest struct {
	ID string `json:"id" validate:"required"`
}

type LoginRequest struct {
	Passphrase string `json:"passphrase" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a short user-facing message about the outcome of an operation.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

func NewNotice(level NoticeLevel, format string, args ...interface{}) *Notice {
	return &Notice{Level: level, Message: fmt.Sprintf(format, args...)}
}

// SessionResult is returned by every editing gesture. Changed is false when
// the gesture was not applicable and nothing happened.
type SessionResult struct {
	Session SessionSnapshot `json:"session"`
	Changed bool            `json:"changed"`
	Notice  *Notice         `json:"notice,omitempty"`
}

type ImportResponse struct {
	ImportResult
	Notice *Notice `json:"notice,omitempty"`
}
