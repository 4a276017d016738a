package http

import (
	"errors"
	"net/http"

	"github.com/partocare/partosync/internal/service"
	"github.com/partocare/partosync/internal/store"
	"github.com/partocare/partosync/models"
)

// errorStatusMap translates service and store sentinels into HTTP status
// codes. Conflicts are deliberately absent: a version conflict is a normal
// push outcome carried inside a 200 response, never an HTTP error.
var errorStatusMap = map[error]int{
	service.ErrInvalidDataProvided:     http.StatusBadRequest,
	service.ErrWrongPassword:           http.StatusUnauthorized,
	service.ErrTokenIsExpiredOrInvalid: http.StatusUnauthorized,
	service.ErrDeviceNotVerified:       http.StatusForbidden,
	service.ErrPasswordHashing:         http.StatusInternalServerError,

	models.ErrEmptyRecordID:        http.StatusBadRequest,
	models.ErrInvalidRecordID:      http.StatusBadRequest,
	models.ErrInvalidVersion:       http.StatusBadRequest,
	models.ErrEmptyPayload:         http.StatusBadRequest,
	models.ErrMalformedPayload:     http.StatusBadRequest,
	models.ErrInconsistentDeletion: http.StatusBadRequest,

	store.ErrUnknownSyncTarget:       http.StatusNotFound,
	store.ErrRecordNotFound:          http.StatusNotFound,
	store.ErrParentNotFound:          http.StatusBadRequest,
	store.ErrLoginAlreadyExists:      http.StatusConflict,
	store.ErrNoStaffWasFound:         http.StatusNotFound,
	store.ErrDeviceNotFound:          http.StatusForbidden,
	store.ErrDeviceAlreadyRegistered: http.StatusConflict,

	store.ErrBuildingSQLQuery:     http.StatusInternalServerError,
	store.ErrExecutingQuery:       http.StatusInternalServerError,
	store.ErrBeginningTransaction: http.StatusInternalServerError,
	store.ErrCommitingTransaction: http.StatusInternalServerError,
	store.ErrScanningRow:          http.StatusInternalServerError,
	store.ErrScanningRows:         http.StatusInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
