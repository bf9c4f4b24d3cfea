package buildinfo

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	old := Version
	Version = "v1.2.3"
	defer func() { Version = old }()

	if !strings.Contains(String(), "version: v1.2.3") {
		t.Errorf("String() = %q, want version line", String())
	}
	if !strings.Contains(Template(), "{{.Name}} version v1.2.3") {
		t.Errorf("Template() = %q", Template())
	}
}

func TestHeader(t *testing.T) {
	oldV, oldC := Version, Commit
	Version, Commit = "v0.1.0", "0123456789abcdef"
	defer func() { Version, Commit = oldV, oldC }()

	h := Header()
	if !strings.HasPrefix(h, "sgtsnepi v0.1.0 (0123456,") {
		t.Errorf("Header() = %q", h)
	}
}
