package errors

import (
	"errors"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseDirectory,
				Kind:   KindInvalidRecord,
				Region: "import",
				Offset: 0x4a0,
				Detail: "library name too short",
			},
			contains: []string{"[directory]", "invalid_record", "import", "0x4a0", "library name too short"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase:  PhaseHeader,
				Kind:   KindTruncated,
				Offset: -1,
			},
			contains: []string{"[header]", "truncated"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseDirectory,
				Kind:   KindStreamBounds,
				Region: "tls",
				Offset: -1,
				Detail: "callback array",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[directory]", "stream_bounds", "tls", "callback array", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !containsSubstring(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseDirectory,
		Kind:  KindStreamBounds,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	// Test with errors.Unwrap
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseDirectory,
		Kind:   KindInvalidRecord,
		Region: "import",
	}

	// Same phase and kind
	if !err.Is(&Error{Phase: PhaseDirectory, Kind: KindInvalidRecord}) {
		t.Error("Is should match same phase and kind")
	}

	// Different phase
	if err.Is(&Error{Phase: PhaseHeader, Kind: KindInvalidRecord}) {
		t.Error("Is should not match different phase")
	}

	// Different kind
	if err.Is(&Error{Phase: PhaseDirectory, Kind: KindLimitExceeded}) {
		t.Error("Is should not match different kind")
	}

	// Test with errors.Is
	target := &Error{Phase: PhaseDirectory, Kind: KindInvalidRecord}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDirectory, KindInvalidRecord).
		Region("import").
		Offset(0x200).
		Value(uint32(7)).
		Cause(cause).
		Detail("descriptor %d rejected", 7).
		Build()

	if err.Phase != PhaseDirectory {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDirectory)
	}
	if err.Kind != KindInvalidRecord {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidRecord)
	}
	if err.Region != "import" {
		t.Errorf("Region = %v, want import", err.Region)
	}
	if err.Offset != 0x200 {
		t.Errorf("Offset = %#x, want 0x200", err.Offset)
	}
	if err.Value != uint32(7) {
		t.Errorf("Value = %v, want 7", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "descriptor 7 rejected" {
		t.Errorf("Detail = %v, want 'descriptor 7 rejected'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("StreamBounds", func(t *testing.T) {
		cause := errors.New("read outside image bounds")
		err := StreamBounds(PhaseDirectory, "debug", 0x1000, cause)
		if err.Kind != KindStreamBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindStreamBounds)
		}
		if !errors.Is(err, &Error{Phase: PhaseDirectory, Kind: KindStreamBounds}) {
			t.Error("errors.Is should match")
		}
	})

	t.Run("NotMapped", func(t *testing.T) {
		err := NotMapped(0xdead0000)
		if err.Kind != KindNotMapped {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNotMapped)
		}
		if err.Phase != PhaseTranslate {
			t.Errorf("Phase = %v, want %v", err.Phase, PhaseTranslate)
		}
		if !containsSubstring(err.Detail, "0xdead0000") {
			t.Errorf("Detail = %v, should contain the rva", err.Detail)
		}
	})

	t.Run("InvalidRecord", func(t *testing.T) {
		err := InvalidRecord("import", 0x400, "name not printable")
		if err.Kind != KindInvalidRecord {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidRecord)
		}
		if err.Region != "import" {
			t.Errorf("Region = %v, want import", err.Region)
		}
	})

	t.Run("UnknownVersion", func(t *testing.T) {
		err := UnknownVersion("load config", 0x3f)
		if err.Kind != KindUnknownVersion {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnknownVersion)
		}
		if err.Value != uint32(0x3f) {
			t.Errorf("Value = %v, want 0x3f", err.Value)
		}
	})

	t.Run("LimitExceeded", func(t *testing.T) {
		err := LimitExceeded("tls", "callback list", 4096)
		if err.Kind != KindLimitExceeded {
			t.Errorf("Kind = %v, want %v", err.Kind, KindLimitExceeded)
		}
		if !containsSubstring(err.Detail, "4096") {
			t.Errorf("Detail = %v, should contain the cap", err.Detail)
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		err := Truncated(PhaseSections, "", 0x178, 40)
		if err.Kind != KindTruncated {
			t.Errorf("Kind = %v, want %v", err.Kind, KindTruncated)
		}
		if !containsSubstring(err.Detail, "40") {
			t.Errorf("Detail = %v, should contain byte count", err.Detail)
		}
	})
}

func containsSubstring(s, substr string) bool {
	if len(substr) == 0 {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
