package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrUnknownSyncTarget is returned when a pull or push names a table that
	// is not registered as a syncable entity table. This is a client error,
	// not a transient failure.
	ErrUnknownSyncTarget = errors.New("unknown sync target table")

	// ErrRecordNotFound is returned when a point lookup by record ID matches
	// nothing, tombstones included.
	ErrRecordNotFound = errors.New("sync record was not found")

	// ErrParentNotFound is returned when an incoming record references a
	// parent entity (partograph, patient) that does not exist or has been
	// tombstoned. The push protocol isolates this to the offending record.
	ErrParentNotFound = errors.New("referenced parent record was not found")

	// ErrLoginAlreadyExists is returned when an attempt to register a new
	// staff account fails because the login is already taken.
	ErrLoginAlreadyExists = errors.New("login already exists")

	// ErrNoStaffWasFound is returned when a query expected to match at least
	// one staff record produces an empty result set.
	ErrNoStaffWasFound = errors.New("no staff account was found")

	// ErrDeviceNotFound is returned when a device ID is not registered, or is
	// registered to a different staff account than the one asking.
	ErrDeviceNotFound = errors.New("device is not registered")

	// ErrDeviceAlreadyRegistered is returned when a device ID is registered
	// a second time.
	ErrDeviceAlreadyRegistered = errors.New("device is already registered")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a query against the
	// database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrScanningRow is returned when scanning column values from a single
	// result row into a destination struct fails.
	ErrScanningRow = errors.New("failed to scan sync record row")

	// ErrScanningRows is returned when scanning column values during
	// multi-row iteration fails, typically mid-result-set.
	ErrScanningRows = errors.New("failed to scan sync record rows")
)
