package bulk

import "dataflow/internal/bulkerr"

// Construction-time failures. All are fatal and never retried.
type (
	TableNameMissingError  = bulkerr.TableNameMissingError
	TableNotFoundError     = bulkerr.TableNotFoundError
	PrimaryKeyMissingError = bulkerr.PrimaryKeyMissingError
	SchemaMismatchError    = bulkerr.SchemaMismatchError
	FieldNotFoundError     = bulkerr.FieldNotFoundError
	TypeMismatchError      = bulkerr.TypeMismatchError
	UnsupportedTypeError   = bulkerr.UnsupportedTypeError
	NoColumnsError         = bulkerr.NoColumnsError
)

// Write-time failures. Nothing from the failing batch is committed.
type (
	GeneratedColumnViolationError = bulkerr.GeneratedColumnViolationError
	EncodingError                 = bulkerr.EncodingError
	TransportError                = bulkerr.TransportError
)
