package handle

import "errors"

var (
	ErrNilDriver        = errors.New("driver is required")
	ErrAddressRequired  = errors.New("connection address is required")
	ErrDatabaseRequired = errors.New("database name is required")

	ErrInvalidStatusForConnect = errors.New("handle is not in a state that allows connecting")
	ErrInvalidStatusForClose   = errors.New("handle can only be closed when ready")
	ErrNotReady                = errors.New("handle is not ready")
	ErrUnknownCollection       = errors.New("collection is not configured")

	ErrConnectFailure = errors.New("connect failed")
	ErrCloseFailure   = errors.New("close failed")
)
