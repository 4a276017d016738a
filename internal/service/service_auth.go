package service

import (
	"context"
	"fmt"
	"time"

	"github.com/partocare/partosync/internal/config"
	"github.com/partocare/partosync/internal/logger"
	"github.com/partocare/partosync/internal/store"
	"github.com/partocare/partosync/internal/utils"
	"github.com/partocare/partosync/models"
	"golang.org/x/crypto/bcrypt"
)

// authService is the concrete implementation of AuthService. It handles
// staff registration, credential verification, device registration, and JWT
// token lifecycle, with bcrypt for password storage.
type authService struct {
	staffRepository store.StaffRepository

	// tokenSignKey is the HMAC secret used to sign and verify JWT tokens.
	tokenSignKey string

	// tokenIssuer is the "iss" claim embedded in every issued JWT.
	tokenIssuer string

	// tokenDuration controls how long a newly issued JWT remains valid.
	tokenDuration time.Duration

	logger *logger.Logger
}

// NewAuthService constructs an AuthService wired to the given
// StaffRepository and populated with security parameters from cfg.
//
// The returned service is safe for concurrent use; all state is read-only
// after construction.
func NewAuthService(staffRepository store.StaffRepository, cfg config.App, logger *logger.Logger) AuthService {
	return &authService{
		staffRepository: staffRepository,
		tokenSignKey:    cfg.TokenSignKey,
		tokenIssuer:     cfg.TokenIssuer,
		tokenDuration:   cfg.TokenDuration,
		logger:          logger,
	}
}

// RegisterStaff creates a new staff account. The plain-text password is
// bcrypt-hashed before it reaches storage and never stored.
//
// Returns the persisted account or:
//   - ErrInvalidDataProvided if Login or Password is empty.
//   - A wrapped storage error if the repository call fails (e.g. login
//     already taken, see store.ErrLoginAlreadyExists).
func (a *authService) RegisterStaff(ctx context.Context, staff models.Staff) (models.Staff, error) {
	log := logger.FromContext(ctx)

	if staff.Login == "" || staff.Password == "" {
		log.Error().Str("login", staff.Login).Msg("invalid staff data provided")
		return models.Staff{}, ErrInvalidDataProvided
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(staff.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Err(err).Msg("password hashing failed")
		return models.Staff{}, fmt.Errorf("%w: %w", ErrPasswordHashing, err)
	}
	staff.Password = ""
	staff.PasswordHash = string(hash)

	registered, err := a.staffRepository.CreateStaff(ctx, staff)
	if err != nil {
		log.Err(err).Str("login", staff.Login).Msg("staff creation ended with error")
		return models.Staff{}, fmt.Errorf("staff creation ended with error: %w", err)
	}

	return registered, nil
}

// Login authenticates an existing staff account by login and password.
//
// Returns the stored account or:
//   - ErrInvalidDataProvided if Login or Password is empty.
//   - A wrapped storage error if the lookup fails (see
//     store.ErrNoStaffWasFound).
//   - ErrWrongPassword if the password does not match the stored hash.
func (a *authService) Login(ctx context.Context, staff models.Staff) (models.Staff, error) {
	log := logger.FromContext(ctx)

	if staff.Login == "" || staff.Password == "" {
		log.Error().Str("login", staff.Login).Msg("invalid staff data provided")
		return models.Staff{}, ErrInvalidDataProvided
	}

	found, err := a.staffRepository.FindStaffByLogin(ctx, staff.Login)
	if err != nil {
		log.Err(err).Str("login", staff.Login).Msg("staff search by login failed")
		return models.Staff{}, fmt.Errorf("staff search by login failed: %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(staff.Password)); err != nil {
		log.Error().Int64("id", found.StaffID).Str("login", found.Login).Msg("wrong password")
		return models.Staff{}, ErrWrongPassword
	}

	return found, nil
}

// CreateToken issues a signed JWT for the given staff account.
func (a *authService) CreateToken(ctx context.Context, staff models.Staff) (models.Token, error) {
	token, err := utils.GenerateJWTToken(a.tokenIssuer, staff.StaffID, a.tokenDuration, a.tokenSignKey)
	if err != nil {
		return models.Token{}, fmt.Errorf("token creation failed: %w", err)
	}

	return token, nil
}

// ParseToken validates and parses a raw JWT string. Any validation failure
// (expired, wrong issuer, malformed) is normalised to
// ErrTokenIsExpiredOrInvalid so callers do not inspect low-level JWT errors.
func (a *authService) ParseToken(ctx context.Context, tokenString string) (models.Token, error) {
	token, err := utils.ValidateAndParseJWTToken(tokenString, a.tokenSignKey, a.tokenIssuer)
	if err != nil {
		return models.Token{}, ErrTokenIsExpiredOrInvalid
	}

	return token, nil
}

// RegisterDevice binds a device to the staff account already resolved from
// the request token.
func (a *authService) RegisterDevice(ctx context.Context, device models.Device) (models.Device, error) {
	log := logger.FromContext(ctx)

	if device.DeviceID == "" || device.StaffID == 0 {
		log.Error().Str("device_id", device.DeviceID).Msg("invalid device data provided")
		return models.Device{}, ErrInvalidDataProvided
	}

	registered, err := a.staffRepository.RegisterDevice(ctx, device)
	if err != nil {
		log.Err(err).Str("device_id", device.DeviceID).Msg("device registration ended with error")
		return models.Device{}, fmt.Errorf("device registration ended with error: %w", err)
	}

	return registered, nil
}

// VerifyDevice gates sync access: the device must have been registered to
// the authenticated staff account beforehand.
func (a *authService) VerifyDevice(ctx context.Context, deviceID string, staffID int64) error {
	log := logger.FromContext(ctx)

	if deviceID == "" {
		return ErrDeviceNotVerified
	}

	_, err := a.staffRepository.FindDevice(ctx, deviceID, staffID)
	if err != nil {
		log.Err(err).Str("device_id", deviceID).Int64("staff_id", staffID).Msg("device verification failed")
		return fmt.Errorf("%w: %s", ErrDeviceNotVerified, deviceID)
	}

	return nil
}
