package models

// PullRequest asks the server for every record of one table changed after
// the device's cursor. A zero LastSyncTimestamp requests a full sync.
type PullRequest struct {
	DeviceID          string `json:"device_id"`
	LastSyncTimestamp int64  `json:"last_sync_timestamp"`
}

// PullResponse carries one page of changed records, tombstones included.
//
// ServerTimestamp echoes the server clock so devices can detect skew; it is
// NOT the next cursor. The next cursor is the maximum UpdatedTime of the
// returned page, advancing it this way is what keeps a HasMore loop from
// returning the same page forever.
type PullResponse struct {
	Records         []SyncRecord `json:"records"`
	ServerTimestamp int64        `json:"server_timestamp"`
	HasMore         bool         `json:"has_more"`
}

// PushRequest submits a batch of locally changed records for one table.
// Records are processed independently; one record's failure never aborts
// the batch.
type PushRequest struct {
	DeviceID string       `json:"device_id"`
	Changes  []SyncRecord `json:"changes"`
}

// PushResponse reports the per-record outcome of a push batch. Every change
// lands in exactly one of the three buckets: accepted (SuccessIDs), rejected
// as stale (Conflicts), or failed for a record-local reason (Errors).
type PushResponse struct {
	SuccessIDs []string      `json:"success_ids"`
	Conflicts  []Conflict    `json:"conflicts"`
	Errors     []RecordError `json:"errors"`
}

// Conflict pairs the device-submitted copy of a record with the server's
// current copy. Conflicts are surfaced, never silently resolved, merge
// policy deliberately belongs to a higher layer.
type Conflict struct {
	ID           string     `json:"id"`
	LocalRecord  SyncRecord `json:"local_record"`
	ServerRecord SyncRecord `json:"server_record"`
	ConflictTime int64      `json:"conflict_time"`
	Reason       string     `json:"reason"`
}

// RecordError isolates a single record's application-level failure (bad
// payload, missing parent reference) inside an otherwise successful batch.
type RecordError struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// ConflictReasonServerNewer is the reason string attached to conflicts
// produced by the version comparison rule.
const ConflictReasonServerNewer = "Server version is newer"
