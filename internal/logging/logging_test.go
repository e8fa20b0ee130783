package logging

import "testing"

func TestNewParsesLevels(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		level, format string
		wantErr       bool
	}{
		{level: "", format: ""},
		{level: "debug", format: "console"},
		{level: "info", format: "json"},
		{level: "loud", format: "json", wantErr: true},
	} {
		logger, err := New(tc.level, tc.format)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("New(%q, %q): expected error", tc.level, tc.format)
			}
			continue
		}
		if err != nil || logger == nil {
			t.Fatalf("New(%q, %q) = (%v, %v)", tc.level, tc.format, logger, err)
		}
	}
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	if OrNop(nil) == nil {
		t.Fatalf("expected a no-op logger")
	}
	logger := NewNop()
	if OrNop(logger) != logger {
		t.Fatalf("expected the given logger back")
	}
}
