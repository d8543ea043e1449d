package model

import "github.com/rotisserie/eris"

// Engine error taxonomy. Callers test with eris.Is; wrapping preserves the
// sentinel through component boundaries.
var (
	// ErrAlreadyImported means the file's content hash is already recorded
	// for the source. Idempotent no-op, not a failure.
	ErrAlreadyImported = eris.New("file already imported")

	// ErrInsufficientIdentity means a record carries no usable hard
	// identifier and no name+flag pair. The record is rejected and
	// reported, never silently dropped.
	ErrInsufficientIdentity = eris.New("insufficient identity")

	// ErrDataLossDetected means a stage's output count fell short of its
	// input count. The batch aborts; silent record loss is worse than a
	// slow abort.
	ErrDataLossDetected = eris.New("data loss detected")

	// ErrLookupUnresolved means a reference lookup (flag, vessel type,
	// gear) found no match. The value is stored null and processing
	// continues.
	ErrLookupUnresolved = eris.New("reference lookup unresolved")
)

// Reject reason strings persisted with rejected records.
const (
	ReasonInsufficientIdentity = "InsufficientIdentity"
	ReasonLookupUnresolved     = "LookupUnresolved"
)
