package scripts

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func TestBuiltinCatalog(t *testing.T) {
	c, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}

	for _, name := range []string{"page-info", "links", "selection", "text", "forms", "headings", "meta"} {
		s, ok := c.Get(name)
		if !ok {
			t.Errorf("builtin script %q missing", name)
			continue
		}
		if s.Description == "" || strings.TrimSpace(s.Code) == "" {
			t.Errorf("script %q has empty description or code", name)
		}
	}

	if _, ok := c.Get("no-such-script"); ok {
		t.Error("Get returned a script that does not exist")
	}
}

func TestListIsSorted(t *testing.T) {
	c, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}

	list := c.List()
	if len(list) < 2 {
		t.Fatalf("List returned %d scripts", len(list))
	}
	names := make([]string, len(list))
	for i, s := range list {
		names[i] = s.Name
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("List not sorted: %v", names)
	}
}

func TestLoadMergesUserCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	user := `scripts:
  - name: my-script
    description: Custom snippet
    code: "document.title.toUpperCase()"
  - name: page-info
    description: Overridden
    code: "1"
`
	if err := os.WriteFile(path, []byte(user), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if s, ok := c.Get("my-script"); !ok || s.Code != "document.title.toUpperCase()" {
		t.Errorf("user script not merged: %+v", s)
	}
	// user entries shadow builtins of the same name
	if s, _ := c.Get("page-info"); s.Description != "Overridden" {
		t.Errorf("builtin not shadowed: %+v", s)
	}
}

func TestLoadMissingUserFileFallsBack(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}
	if _, ok := c.Get("page-info"); !ok {
		t.Error("builtins missing after fallback")
	}
}

func TestLoadMalformedUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("scripts: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed user catalog loaded without error")
	}
}

func TestFormsScriptRedactsPasswords(t *testing.T) {
	c, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	s, ok := c.Get("forms")
	if !ok {
		t.Fatal("forms script missing")
	}
	if !strings.Contains(s.Code, "password") {
		t.Error("forms script does not special-case password inputs")
	}
}
