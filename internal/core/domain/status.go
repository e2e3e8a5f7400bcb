package domain

// VertexStatus is the state of a target within one scheduler run.
type VertexStatus string

// Target states. Cached means the target's inputs were unchanged and no work ran.
// Skipped means an earlier target failed or the run was cancelled first.
const (
	VertexStatusPending   VertexStatus = "pending"
	VertexStatusRunning   VertexStatus = "running"
	VertexStatusCompleted VertexStatus = "completed"
	VertexStatusFailed    VertexStatus = "failed"
	VertexStatusCached    VertexStatus = "cached"
	VertexStatusSkipped   VertexStatus = "skipped"
)

// LogLevel is the severity of a line written to a progress vertex.
// The values follow log/slog.
type LogLevel int

const (
	LogLevelDebug LogLevel = -4
	LogLevelInfo  LogLevel = 0
	LogLevelWarn  LogLevel = 4
	LogLevelError LogLevel = 8
)

// String returns the upper-case level name, INFO for unknown levels.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}
