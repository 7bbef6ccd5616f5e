package httpadapter

import (
	"net/http"

	"github.com/inkfold/notecore/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNoteNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrRecognitionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
