package httpserver

const (
	ErrBadForm      = "bad form"
	ErrMissingField = "missing field"
	ErrDependency   = "dependency error"
	ErrProvider     = "provider error"
	ErrUnavailable  = "provider unavailable"
)
