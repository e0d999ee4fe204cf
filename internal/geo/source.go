package geo

// SourceError identifies why the location source failed to produce a fix.
// These come from the client's geolocation collaborator and pass through
// unmodified so the caller can give kind-specific guidance. They are never
// retried automatically.
type SourceError string

const (
	SourcePermissionDenied    SourceError = "PERMISSION_DENIED"
	SourcePositionUnavailable SourceError = "POSITION_UNAVAILABLE"
	SourceTimeout             SourceError = "TIMEOUT"
)

// IsValid checks if the source error is one of the supported enum values.
func (e SourceError) IsValid() bool {
	switch e {
	case SourcePermissionDenied, SourcePositionUnavailable, SourceTimeout:
		return true
	}
	return false
}

// Message returns the human-readable guidance for a source error. The mapping
// is total: every enumerated kind has a message.
func (e SourceError) Message() string {
	switch e {
	case SourcePermissionDenied:
		return "location access was denied; enable location permissions and try again"
	case SourcePositionUnavailable:
		return "your position could not be determined; move to an area with better signal"
	case SourceTimeout:
		return "locating you took too long; try again"
	default:
		return "location could not be acquired"
	}
}
