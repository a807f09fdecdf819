package logging

import "log/slog"

// Common field names for consistent logging across the service.
const (
	FieldComponent = "component"
	FieldEventUUID = "event_uuid"
	FieldObjects   = "objects"
	FieldSubject   = "subject"
	FieldIndex     = "index"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
)

// Component returns a slog attribute for the emitting component.
func Component(name string) slog.Attr {
	return slog.String(FieldComponent, name)
}

// EventUUID returns a slog attribute for the source event identifier.
func EventUUID(uuid string) slog.Attr {
	return slog.String(FieldEventUUID, uuid)
}

// Objects returns a slog attribute for a produced object count.
func Objects(n int) slog.Attr {
	return slog.Int(FieldObjects, n)
}

// Subject returns a slog attribute for a message broker subject.
func Subject(subject string) slog.Attr {
	return slog.String(FieldSubject, subject)
}

// Index returns a slog attribute for a storage index name.
func Index(index string) slog.Attr {
	return slog.String(FieldIndex, index)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error value.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
