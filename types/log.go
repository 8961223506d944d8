package types

// LogLevel is the severity of a log entry forwarded to the backend.
type LogLevel string

const (
	LevelTrace LogLevel = "TRACE"
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// MapRunnerLevel converts a runner log level onto a backend level. Runner
// FAIL messages are forwarded as ERROR; anything unrecognized degrades to
// INFO rather than failing the event.
func MapRunnerLevel(level string) LogLevel {
	switch level {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return LevelDebug
	case "INFO", "HTML":
		return LevelInfo
	case "WARN":
		return LevelWarn
	case "ERROR", "FAIL":
		return LevelError
	default:
		return LevelInfo
	}
}

// Attachment is a binary payload delivered alongside a log entry, typically
// a screenshot referenced from a runner message.
type Attachment struct {
	Name string
	MIME string
	Data []byte
}
