package handle

import "fmt"

// Status represents the lifecycle state of a connection handle
type Status int

const (
	StatusNotExist     Status = 0
	StatusReady        Status = 1
	StatusBusy         Status = 2
	StatusDisconnected Status = -1
	StatusError        Status = -2
)

func (s Status) String() string {
	switch s {
	case StatusNotExist:
		return "not_exist"
	case StatusReady:
		return "ready"
	case StatusBusy:
		return "busy"
	case StatusDisconnected:
		return "disconnected"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("unknown_%d", int(s))
	}
}

// Terminal reports whether no further transition can leave s
func (s Status) Terminal() bool {
	return s == StatusDisconnected || s == StatusError
}

// canConnect reports whether a connect sequence may start from s
func canConnect(s Status) bool {
	return s == StatusNotExist || s == StatusReady || s == StatusDisconnected
}
