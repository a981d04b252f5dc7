package pe

import (
	"fmt"

	"go.uber.org/zap"
)

// Severity classifies a diagnostic event. Diagnostics are advisory:
// downstream consumers never need them for correctness.
type Severity int8

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic is one non-fatal event emitted while parsing: a region
// skipped, truncated, or degraded. Offset is the file offset the event
// refers to, or -1.
type Diagnostic struct {
	Severity Severity
	Region   string
	Offset   int64
	Message  string
}

func (d Diagnostic) String() string {
	if d.Region == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	if d.Offset >= 0 {
		return fmt.Sprintf("%s: %s at %#x: %s", d.Severity, d.Region, d.Offset, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Region, d.Message)
}

// Diagnostics returns the ordered trail collected during the parse.
func (f *File) Diagnostics() []Diagnostic {
	return f.diags
}

func (f *File) diag(sev Severity, region string, off int64, format string, args ...any) {
	d := Diagnostic{
		Severity: sev,
		Region:   region,
		Offset:   off,
		Message:  fmt.Sprintf(format, args...),
	}
	f.diags = append(f.diags, d)

	log := Logger()
	fields := []zap.Field{zap.String("region", region)}
	if off >= 0 {
		fields = append(fields, zap.Int64("offset", off))
	}
	switch sev {
	case SeverityWarning:
		log.Warn(d.Message, fields...)
	case SeverityInfo:
		log.Info(d.Message, fields...)
	default:
		log.Debug(d.Message, fields...)
	}
}
