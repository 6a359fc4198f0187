package handler

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"boulder-editor/internal/catalogue"
	"boulder-editor/internal/domain"
	"boulder-editor/internal/service"
	"boulder-editor/pkg/response"
)

// writeError maps a domain or service error onto a status code and a
// user-facing message.
func writeError(w http.ResponseWriter, err error) {
	if ve, ok := domain.AsValidationError(err); ok {
		response.CodedError(w, http.StatusUnprocessableEntity, ve.Code, ve.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrUnknownHold), errors.Is(err, domain.ErrBoulderNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, domain.ErrNoActiveBoulder),
		errors.Is(err, domain.ErrCatalogueNotLoaded),
		errors.Is(err, service.ErrExportNoCatalogue),
		errors.Is(err, service.ErrExportEmpty):
		response.Conflict(w, err.Error())
	case errors.Is(err, domain.ErrInvalidImportFormat),
		errors.Is(err, domain.ErrInvalidCatalogue),
		errors.Is(err, domain.ErrMalformedRecord):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrFetchFailed):
		response.Error(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, catalogue.ErrNoSource):
		response.Conflict(w, err.Error())
	case errors.Is(err, service.ErrInvalidPassphrase):
		response.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrAuthDisabled):
		response.NotFound(w, err.Error())
	default:
		logrus.WithError(err).Error("Unhandled request error")
		response.InternalError(w, "Internal server error")
	}
}
