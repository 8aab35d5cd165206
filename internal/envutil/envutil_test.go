package envutil

import (
	"strings"
	"testing"
)

func lookup(env []string, key string) (string, bool) {
	for _, kv := range env {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

func TestOverlayOverridesInherited(t *testing.T) {
	t.Setenv("PROCMATE_TEST_BASE", "inherited")
	env := Overlay(map[string]string{"PROCMATE_TEST_BASE": "overridden"})
	if v, ok := lookup(env, "PROCMATE_TEST_BASE"); !ok || v != "overridden" {
		t.Fatalf("got %q (present=%v), want overridden", v, ok)
	}
}

func TestOverlayPassThrough(t *testing.T) {
	t.Setenv("PROCMATE_TEST_KEEP", "kept")
	env := Overlay(map[string]string{"PROCMATE_TEST_NEW": "new"})
	if v, _ := lookup(env, "PROCMATE_TEST_KEEP"); v != "kept" {
		t.Fatalf("inherited var lost: %q", v)
	}
	if v, _ := lookup(env, "PROCMATE_TEST_NEW"); v != "new" {
		t.Fatalf("overlay var missing: %q", v)
	}
}

func TestOverlayExpansion(t *testing.T) {
	t.Setenv("PROCMATE_TEST_ROOT", "/srv/app")
	env := Overlay(map[string]string{"DATA_DIR": "${PROCMATE_TEST_ROOT}/data"})
	if v, _ := lookup(env, "DATA_DIR"); v != "/srv/app/data" {
		t.Fatalf("expansion = %q, want /srv/app/data", v)
	}
}
