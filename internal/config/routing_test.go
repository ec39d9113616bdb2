package config

import (
	"os"
	"path/filepath"
	"testing"
)

const routingFixture = `
default_tag: general
default_mention: helpers
specialties:
  - tag: backend
    mention: backend-mentors
  - tag: Frontend
    mention: frontend-mentors
`

func writeRoutingFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routing.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write routing file: %v", err)
	}
	return path
}

func TestLoadRouting(t *testing.T) {
	table, err := LoadRouting(writeRoutingFile(t, routingFixture))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cases := []struct {
		tag         string
		wantTag     string
		wantMention string
	}{
		{"backend", "backend", "backend-mentors"},
		{"  Backend ", "backend", "backend-mentors"},
		{"frontend", "frontend", "frontend-mentors"},
		{"", "general", "helpers"},
		{"quantum", "general", "helpers"},
	}
	for _, tc := range cases {
		gotTag := table.Resolve(tc.tag)
		if gotTag != tc.wantTag {
			t.Errorf("Resolve(%q) = %q, want %q", tc.tag, gotTag, tc.wantTag)
		}
		if gotMention := table.Mention(gotTag); gotMention != tc.wantMention {
			t.Errorf("Mention(%q) = %q, want %q", gotTag, gotMention, tc.wantMention)
		}
	}

	if !table.Known("backend") || table.Known("quantum") {
		t.Error("Known misreports explicit routes")
	}
}

func TestLoadRoutingMissingFileFallsBack(t *testing.T) {
	table, err := LoadRouting(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if table.Resolve("anything") != "general" {
		t.Errorf("Resolve = %q, want default tag", table.Resolve("anything"))
	}
	if table.Mention("anything") != "helpers" {
		t.Errorf("Mention = %q, want default mention", table.Mention("anything"))
	}
}

func TestLoadRoutingRejectsMalformedYAML(t *testing.T) {
	if _, err := LoadRouting(writeRoutingFile(t, "specialties: [")); err == nil {
		t.Fatal("expected parse error for malformed file")
	}
}

func TestLoadRoutingFillsDefaults(t *testing.T) {
	table, err := LoadRouting(writeRoutingFile(t, "specialties:\n  - tag: data\n    mention: data-mentors\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if table.Resolve("nope") != "general" || table.Mention("nope") != "helpers" {
		t.Error("missing defaults were not filled in")
	}
	if table.Mention("data") != "data-mentors" {
		t.Errorf("Mention(data) = %q, want data-mentors", table.Mention("data"))
	}
}
