package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	t.Setenv("HH_MATCHER_TEST_SECRET", " from-env ")

	tests := []struct {
		name    string
		src     Source
		expect  string
		wantErr string
	}{
		{name: "file wins", src: Source{File: keyFile, Env: "HH_MATCHER_TEST_SECRET", Value: "inline"}, expect: "from-file"},
		{name: "env before value", src: Source{Env: "HH_MATCHER_TEST_SECRET", Value: "inline"}, expect: "from-env"},
		{name: "inline value", src: Source{Value: " inline "}, expect: "inline"},
		{name: "unset env falls back to value", src: Source{Env: "HH_MATCHER_TEST_UNSET", Value: "inline"}, expect: "inline"},
		{name: "empty file", src: Source{Name: "api key", File: emptyFile}, wantErr: "api key file"},
		{name: "missing file", src: Source{Name: "dsn", File: filepath.Join(dir, "nope")}, wantErr: "reading dsn"},
		{name: "nothing configured", src: Source{Name: "dsn", Env: "HH_MATCHER_TEST_UNSET"}, wantErr: "set HH_MATCHER_TEST_UNSET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
