package api

import (
	"errors"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
	"OracleEngine/internal/usecase"
	xhttp "OracleEngine/pkg/http"
)

// appError maps domain errors onto the typed API envelope. Unknown errors
// pass through and render as a generic 500.
func appError(err error) error {
	var unavailable *models.UnavailableError
	switch {
	case errors.Is(err, models.ErrUnsupportedAsset):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, domrepo.ErrNotFound):
		return xhttp.NotFoundError("resource not found").WithError(err)
	case errors.Is(err, models.ErrInvalidRule), errors.Is(err, domrepo.ErrInvalidInput):
		return xhttp.UnprocessableError("", err.Error()).WithError(err)
	case errors.Is(err, models.ErrInvalidTransition):
		return xhttp.ConflictError(err.Error()).WithError(err)
	case errors.Is(err, domrepo.ErrConflict):
		return xhttp.ConflictError("concurrent update, retry").WithError(err)
	case errors.Is(err, usecase.ErrScanInProgress):
		return xhttp.ConflictError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrDisabled):
		return xhttp.DisabledError("storage", err.Error()).WithError(err)
	case errors.As(err, &unavailable):
		return xhttp.UnavailableError(unavailable.Source, err.Error()).WithError(err)
	case errors.Is(err, models.ErrUnavailable):
		return xhttp.UnavailableError("market_data", err.Error()).WithError(err)
	}
	return err
}
