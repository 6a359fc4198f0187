package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"boulder-editor/internal/domain"
	"boulder-editor/internal/service"
	"boulder-editor/pkg/response"
)

type SessionHandler struct {
	service  *service.SessionService
	validate *validator.Validate
}

func NewSessionHandler(service *service.SessionService) *SessionHandler {
	return &SessionHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.service.Snapshot())
}

func (h *SessionHandler) New(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.service.NewBoulder())
}

func (h *SessionHandler) TapHold(w http.ResponseWriter, r *http.Request) {
	holdID := domain.HoldID(mux.Vars(r)["holdId"])
	if holdID == "" {
		response.BadRequest(w, "Hold ID is required")
		return
	}

	res, err := h.service.TapHold(holdID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, res)
}

// MarkStart, MarkFinish and RemoveHold use the {holdId} path variable when
// present and the current selection otherwise.
func (h *SessionHandler) MarkStart(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.service.MarkStart(pathHold(r)))
}

func (h *SessionHandler) MarkFinish(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.service.MarkFinish(pathHold(r)))
}

func (h *SessionHandler) RemoveHold(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.service.RemoveHold(pathHold(r)))
}

func (h *SessionHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	writeResult(w, h.service.UpdateMetadata(&req))
}

type validationResponse struct {
	Valid      bool                    `json:"valid"`
	Validation *domain.ValidationError `json:"validation,omitempty"`
}

func (h *SessionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	err := h.service.Validate()
	if err == nil {
		response.Success(w, validationResponse{Valid: true})
		return
	}
	ve, ok := domain.AsValidationError(err)
	if !ok {
		writeError(w, err)
		return
	}
	response.Success(w, validationResponse{Valid: false, Validation: ve})
}

func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Save(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, res)
}

func (h *SessionHandler) Load(w http.ResponseWriter, r *http.Request) {
	boulderID := mux.Vars(r)["id"]
	if boulderID == "" {
		response.BadRequest(w, "Boulder ID is required")
		return
	}

	res, err := h.service.LoadBoulder(boulderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, res)
}

func pathHold(r *http.Request) domain.HoldID {
	return domain.HoldID(mux.Vars(r)["holdId"])
}

func writeResult(w http.ResponseWriter, res domain.SessionResult) {
	response.WithNotice(w, http.StatusOK, res, res.Notice)
}
