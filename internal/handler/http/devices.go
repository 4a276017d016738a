package http

import (
	"encoding/json"
	"net/http"

	"github.com/partocare/partosync/internal/logger"
	"github.com/partocare/partosync/internal/utils"
	"github.com/partocare/partosync/models"
)

// registerDevice binds a device identifier to the authenticated staff
// account. Sync calls from that device are rejected until this happens.
func (h *Handler) registerDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	staffID, ok := utils.GetStaffIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no staff id in request context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var device models.Device
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}
	device.StaffID = staffID

	registered, err := h.services.AuthService.RegisterDevice(ctx, device)
	if err != nil {
		log.Err(err).Str("device_id", device.DeviceID).Msg("device registration failed")
		http.Error(w, err.Error(), statusFromError(err))
		return
	}

	utils.WriteJSON(w, registered, http.StatusCreated) //nolint:errcheck // headers already sent
}
