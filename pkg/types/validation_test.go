package types

import "testing"

func TestIsValidClassCode(t *testing.T) {
	cases := map[string]bool{
		"ABC123": true,
		"000000": true,
		"abc123": false,
		"ABC12":  false,
		"ABC1234": false,
		"":       false,
	}
	for code, want := range cases {
		if got := IsValidClassCode(code); got != want {
			t.Errorf("IsValidClassCode(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"":      "",
		"es-es": "es-ES",
		"ES_es": "es-ES",
		"en":    "en",
	}
	for in, want := range cases {
		if got := NormalizeLanguage(in); got != want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeLanguage_FallsBackOnUnparsable(t *testing.T) {
	got := NormalizeLanguage("!!!not-a-tag!!!")
	if got != "!!!not-a-tag!!!" {
		t.Errorf("expected unparsable tag to pass through unchanged, got %q", got)
	}
}

func TestIsValidRole(t *testing.T) {
	if !IsValidRole(string(RoleTeacher)) {
		t.Error("expected teacher role to be valid")
	}
	if !IsValidRole(string(RoleStudent)) {
		t.Error("expected student role to be valid")
	}
	if IsValidRole("admin") {
		t.Error("expected unknown role to be invalid")
	}
}
