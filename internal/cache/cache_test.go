package cache

import (
	"net/http"
	"testing"
)

func TestKey(t *testing.T) {
	if got := Key("GET", "/api/meetings?limit=5"); got != "GET /api/meetings?limit=5" {
		t.Fatalf("Key = %q, want method and url joined", got)
	}
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	original := Snapshot{
		Status: 200,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   []byte("payload"),
	}

	clone := original.Clone()
	clone.Header.Set("Content-Type", "text/plain")
	clone.Body[0] = 'x'

	if original.Header.Get("Content-Type") != "application/json" {
		t.Fatal("clone shares header map with original")
	}
	if string(original.Body) != "payload" {
		t.Fatal("clone shares body slice with original")
	}
}

func TestNamespacesOwnership(t *testing.T) {
	n := DefaultNamespaces()

	if !n.Owns(n.Static) || !n.Owns(n.Dynamic) {
		t.Fatal("generation should own its static and dynamic namespaces")
	}
	if n.Owns(n.Legacy) {
		t.Fatal("legacy namespace must not be owned, so pruning deletes it")
	}
	for _, name := range n.Known() {
		if name == n.Legacy {
			t.Fatal("known set must exclude the legacy name")
		}
	}
}

func TestPurposeOf(t *testing.T) {
	n := DefaultNamespaces()

	if got := n.PurposeOf(n.Static); got != PurposeStatic {
		t.Fatalf("PurposeOf(static) = %q, want %q", got, PurposeStatic)
	}
	if got := n.PurposeOf(n.Dynamic); got != PurposeDynamic {
		t.Fatalf("PurposeOf(dynamic) = %q, want %q", got, PurposeDynamic)
	}
	if got := n.PurposeOf("granola-cache"); got != PurposeLegacy {
		t.Fatalf("PurposeOf(legacy) = %q, want %q", got, PurposeLegacy)
	}
}
