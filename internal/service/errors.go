package service

import (
	"errors"
	"net/http"

	"github.com/mmynk/churchboard/internal/apperr"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/storage"
)

var (
	errAlreadyPurchased = apperr.New(http.StatusConflict, apperr.CodeAlreadyPurchased, "requirement is already purchased")
	errNotPurchased     = apperr.New(http.StatusConflict, apperr.CodeNotPurchased, "requirement is not purchased")
	errInvalidAmount    = apperr.New(http.StatusBadRequest, apperr.CodeInvalidAmount, "amount must be between 0.01 and 1000000000000")
	errTaskCompleted    = apperr.New(http.StatusConflict, apperr.CodeTaskCompleted, "tithe task is already completed")
	errCannotModifySelf = apperr.New(http.StatusBadRequest, apperr.CodeCannotModifySelf, "you cannot do this to your own account")
)

func invalidTarget(message string) *apperr.Error {
	return apperr.New(http.StatusBadRequest, apperr.CodeInvalidTargetUser, message)
}

// storeErr maps storage sentinels to API errors. Errors that are already
// coded pass through unchanged.
func storeErr(err error, what string) error {
	var coded *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &coded):
		return coded
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound(what)
	case errors.Is(err, storage.ErrTaskCompleted):
		return errTaskCompleted
	default:
		return apperr.Internal(err)
	}
}

// requireCaller guards against handlers invoked without authentication.
func requireCaller(caller *models.User) error {
	if caller == nil {
		return apperr.New(http.StatusUnauthorized, apperr.CodeAuthRequired, "authorization token required")
	}
	return nil
}
