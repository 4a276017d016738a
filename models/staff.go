package models

import "time"

// Staff represents a clinical staff account (midwife, nurse, obstetrician)
// used for authentication and authorization. Sensitive fields must never be
// exposed outside trusted boundaries.
type Staff struct {
	// StaffID is the internal unique identifier of the account.
	// Used only at the persistence layer.
	StaffID int64 `json:"-"`

	// Login is the unique login identifier used during authentication.
	Login string `json:"login"`

	// Name is the display name of the staff member.
	Name string `json:"name"`

	// Role is the clinical role label (e.g. "midwife", "doctor").
	// Informational only; the sync protocol performs no role checks.
	Role string `json:"role"`

	// Password carries the plaintext credential on inbound register/login
	// requests only. It is hashed with bcrypt before storage and never
	// serialized back out.
	Password string `json:"password,omitempty"`

	// PasswordHash is the bcrypt hash persisted for the account.
	PasswordHash string `json:"-"`

	// CreatedAt is when the account was created.
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the name of the database table associated with the
// Staff model.
func (s Staff) TableName() string {
	return "staff"
}

// Device is a registered mobile device bound to a staff account. The sync
// endpoints accept a push or pull only from a device registered to the
// authenticated staff member, this is the whole of the device gate.
type Device struct {
	// DeviceID is the client-generated UUID identifying the device.
	DeviceID string `json:"device_id"`

	// StaffID is the owning account.
	StaffID int64 `json:"-"`

	// Label is a free-form device description ("ward 3 tablet").
	Label string `json:"label"`

	// RegisteredAt is when the device was first registered.
	RegisteredAt time.Time `json:"registered_at"`
}

// TableName returns the name of the database table associated with the
// Device model.
func (d Device) TableName() string {
	return "devices"
}
