package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// SyncStatus describes where a record stands in the synchronization
// lifecycle. The server only ever writes StatusSynced; the other two values
// exist on devices and round-trip through the wire envelope unchanged.
type SyncStatus string

const (
	// StatusUnsynced marks a record created or edited locally on a device
	// and not yet accepted by the server.
	StatusUnsynced SyncStatus = "unsynced"

	// StatusSynced marks a record whose latest accepted revision matches the
	// server's copy.
	StatusSynced SyncStatus = "synced"

	// StatusConflicted marks a record whose last push was rejected because
	// the server held a newer revision. Resolution is left to the caller.
	StatusConflicted SyncStatus = "conflicted"
)

// SyncRecord is the generic envelope every syncable entity travels in:
// patients, partographs and all measurement types share this shape, with the
// entity-specific fields carried as an opaque JSON payload.
//
// ID is generated on the device so records can be created offline; it is
// immutable and serves as the join key between device and server copies.
// Version is the device-local edit counter submitted as the writer's claimed
// base revision. ServerVersion is maintained exclusively by the server and is
// the sole arbiter of which copy is newer.
//
// All timestamps are epoch milliseconds.
type SyncRecord struct {
	ID            string          `json:"id"`
	Version       int64           `json:"version"`
	ServerVersion int64           `json:"server_version"`
	SyncStatus    SyncStatus      `json:"sync_status"`
	CreatedTime   int64           `json:"created_time"`
	UpdatedTime   int64           `json:"updated_time"`
	DeletedTime   int64           `json:"deleted_time"`
	Deleted       bool            `json:"deleted"`
	Payload       json.RawMessage `json:"payload"`
}

// Validation errors for inbound sync records. Callers should use
// [errors.Is] to match against these values.
var (
	ErrEmptyRecordID        = errors.New("record id is empty")
	ErrInvalidRecordID      = errors.New("record id is not a valid UUID")
	ErrInvalidVersion       = errors.New("record version must be positive")
	ErrEmptyPayload         = errors.New("record payload is empty")
	ErrMalformedPayload     = errors.New("record payload is not valid JSON")
	ErrInconsistentDeletion = errors.New("deleted flag and deleted_time disagree")
)

// Validate checks the envelope invariants a record must satisfy before the
// push protocol will even look at it: a UUID identifier, a positive claimed
// version, a well-formed payload, and an internally consistent tombstone
// (Deleted is true exactly when DeletedTime is set).
func (r *SyncRecord) Validate() error {
	if r.ID == "" {
		return ErrEmptyRecordID
	}
	if _, err := uuid.Parse(r.ID); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidRecordID, r.ID)
	}
	if r.Version < 1 {
		return ErrInvalidVersion
	}
	if len(r.Payload) == 0 {
		return ErrEmptyPayload
	}
	if !json.Valid(r.Payload) {
		return ErrMalformedPayload
	}
	if r.Deleted != (r.DeletedTime > 0) {
		return ErrInconsistentDeletion
	}
	return nil
}

// MarkDeleted turns the record into a tombstone at the given epoch-ms
// instant. It is the only sanctioned way to set the Deleted flag, keeping the
// flag and DeletedTime in lockstep. Tombstones remain queryable so deletions
// propagate to other devices during pull.
func (r *SyncRecord) MarkDeleted(now int64) {
	r.Deleted = true
	r.DeletedTime = now
	r.UpdatedTime = now
	r.Version++
	r.SyncStatus = StatusUnsynced
}

// IsTombstone reports whether the record is a propagating soft-delete.
func (r *SyncRecord) IsTombstone() bool {
	return r.Deleted
}
