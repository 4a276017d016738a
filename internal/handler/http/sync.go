// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Partocare

package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/partocare/partosync/internal/logger"
	"github.com/partocare/partosync/internal/utils"
	"github.com/partocare/partosync/models"
)

// pull serves POST /api/sync/{table}/pull. The device submits its cursor and
// receives one page of changed records, tombstones included.
func (h *Handler) pull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)
	table := chi.URLParam(r, "table")

	var request models.PullRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if !h.verifyDevice(w, r, request.DeviceID) {
		return
	}

	response, err := h.services.SyncService.Pull(ctx, table, request)
	if err != nil {
		log.Err(err).Str("table", table).Msg("pull failed")
		http.Error(w, err.Error(), statusFromError(err))
		return
	}

	log.Debug().
		Str("table", table).
		Int64("cursor", request.LastSyncTimestamp).
		Int("records", len(response.Records)).
		Bool("has_more", response.HasMore).
		Msg("pull served")

	utils.WriteJSON(w, response, http.StatusOK) //nolint:errcheck // headers already sent
}

// push serves POST /api/sync/{table}/push. Per-record outcomes travel in the
// response body; the HTTP status stays 200 even when every record conflicts,
// because a conflict is a protocol result, not a transport failure.
func (h *Handler) push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)
	table := chi.URLParam(r, "table")

	var request models.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if !h.verifyDevice(w, r, request.DeviceID) {
		return
	}

	response, err := h.services.SyncService.Push(ctx, table, request)
	if err != nil {
		log.Err(err).Str("table", table).Msg("push failed")
		http.Error(w, err.Error(), statusFromError(err))
		return
	}

	log.Debug().
		Str("table", table).
		Int("success", len(response.SuccessIDs)).
		Int("conflicts", len(response.Conflicts)).
		Int("errors", len(response.Errors)).
		Msg("push served")

	utils.WriteJSON(w, response, http.StatusOK) //nolint:errcheck // headers already sent
}

// verifyDevice checks the submitted device ID against the authenticated
// staff account and writes the error response itself when the check fails.
func (h *Handler) verifyDevice(w http.ResponseWriter, r *http.Request, deviceID string) bool {
	ctx := r.Context()
	log := logger.FromRequest(r)

	staffID, ok := utils.GetStaffIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no staff id in request context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return false
	}

	if err := h.services.AuthService.VerifyDevice(ctx, deviceID, staffID); err != nil {
		log.Err(err).Str("device_id", deviceID).Int64("staff_id", staffID).Msg("device verification failed")
		http.Error(w, err.Error(), statusFromError(err))
		return false
	}

	return true
}
