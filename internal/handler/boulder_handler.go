package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"boulder-editor/internal/domain"
	"boulder-editor/internal/service"
	"boulder-editor/pkg/response"
)

const maxImportBytes = 32 << 20

type BoulderHandler struct {
	collection *service.CollectionService
	session    *service.SessionService
}

func NewBoulderHandler(collection *service.CollectionService, session *service.SessionService) *BoulderHandler {
	return &BoulderHandler{
		collection: collection,
		session:    session,
	}
}

func (h *BoulderHandler) List(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.collection.Summaries())
}

func (h *BoulderHandler) Recent(w http.ResponseWriter, r *http.Request) {
	window := service.DefaultRecentWindow
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			response.BadRequest(w, "days must be a positive integer")
			return
		}
		window = time.Duration(days) * 24 * time.Hour
	}
	response.Success(w, h.collection.Recent(window))
}

func (h *BoulderHandler) Get(w http.ResponseWriter, r *http.Request) {
	boulderID := mux.Vars(r)["id"]
	if boulderID == "" {
		response.BadRequest(w, "Boulder ID is required")
		return
	}

	b, err := h.collection.Get(boulderID)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, b)
}

func (h *BoulderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	boulderID := mux.Vars(r)["id"]
	if boulderID == "" {
		response.BadRequest(w, "Boulder ID is required")
		return
	}

	res, err := h.session.DeleteBoulder(r.Context(), boulderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, res)
}

// Import accepts the interchange document either as the raw request body or
// as the "file" field of a multipart form.
func (h *BoulderHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := importBody(w, r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	defer body.Close()

	result, notice, err := h.session.Import(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	response.WithNotice(w, http.StatusOK, domain.ImportResponse{ImportResult: result, Notice: notice}, notice)
}

func (h *BoulderHandler) Export(w http.ResponseWriter, r *http.Request) {
	file, err := h.session.Export()
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		logrus.WithError(err).Warn("Failed to write export")
	}
}

func importBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.Body, nil
	}

	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		return nil, fmt.Errorf("invalid upload: %w", err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing file field: %w", err)
	}
	return file, nil
}
