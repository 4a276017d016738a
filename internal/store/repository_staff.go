package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/partocare/partosync/internal/logger"
	"github.com/partocare/partosync/models"
)

// StaffRepositoryPostgres implements [StaffRepository] on PostgreSQL.
type StaffRepositoryPostgres struct {
	db     *DB
	logger *logger.Logger
}

// NewStaffRepositoryPostgres constructs the repository.
func NewStaffRepositoryPostgres(db *DB, log *logger.Logger) *StaffRepositoryPostgres {
	return &StaffRepositoryPostgres{db: db, logger: log}
}

// CreateStaff inserts a new staff account and returns the stored row.
// A taken login yields [ErrLoginAlreadyExists].
func (r *StaffRepositoryPostgres) CreateStaff(ctx context.Context, staff models.Staff) (models.Staff, error) {
	var created models.Staff

	row := r.db.QueryRowContext(ctx, createStaff, staff.Login, staff.Name, staff.Role, staff.PasswordHash)
	err := row.Scan(&created.StaffID, &created.Login, &created.Name, &created.Role, &created.PasswordHash, &created.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Staff{}, ErrLoginAlreadyExists
		}
		r.logger.Err(err).Str("func", "CreateStaff").Msg("error inserting staff account")
		return models.Staff{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return created, nil
}

// FindStaffByLogin looks up a staff account by login.
// Returns [ErrNoStaffWasFound] when the login is unknown.
func (r *StaffRepositoryPostgres) FindStaffByLogin(ctx context.Context, login string) (models.Staff, error) {
	var staff models.Staff

	row := r.db.QueryRowContext(ctx, findStaffByLogin, login)
	err := row.Scan(&staff.StaffID, &staff.Login, &staff.Name, &staff.Role, &staff.PasswordHash, &staff.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Staff{}, ErrNoStaffWasFound
	}
	if err != nil {
		r.logger.Err(err).Str("func", "FindStaffByLogin").Msg("error selecting staff account")
		return models.Staff{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return staff, nil
}

// RegisterDevice binds a device ID to a staff account.
// A device ID registered before yields [ErrDeviceAlreadyRegistered].
func (r *StaffRepositoryPostgres) RegisterDevice(ctx context.Context, device models.Device) (models.Device, error) {
	var registered models.Device

	row := r.db.QueryRowContext(ctx, createDevice, device.DeviceID, device.StaffID, device.Label)
	err := row.Scan(&registered.DeviceID, &registered.StaffID, &registered.Label, &registered.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Device{}, ErrDeviceAlreadyRegistered
		}
		r.logger.Err(err).Str("func", "RegisterDevice").Msg("error inserting device")
		return models.Device{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return registered, nil
}

// FindDevice looks up a device registered to the given staff account.
// Returns [ErrDeviceNotFound] when the pair is unknown.
func (r *StaffRepositoryPostgres) FindDevice(ctx context.Context, deviceID string, staffID int64) (models.Device, error) {
	var device models.Device

	row := r.db.QueryRowContext(ctx, findDevice, deviceID, staffID)
	err := row.Scan(&device.DeviceID, &device.StaffID, &device.Label, &device.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Device{}, ErrDeviceNotFound
	}
	if err != nil {
		r.logger.Err(err).Str("func", "FindDevice").Msg("error selecting device")
		return models.Device{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return device, nil
}
