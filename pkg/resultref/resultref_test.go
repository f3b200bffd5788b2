package resultref

import (
	"errors"
	"testing"

	"github.com/jarrod-lowe/jmap-client/pkg/value"
)

func TestNew_Valid(t *testing.T) {
	ref, err := New("0", "Email/query", "/ids")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if ref.ResultOf != "0" || ref.Name != "Email/query" || ref.Path != "/ids" {
		t.Errorf("unexpected reference: %+v", ref)
	}
}

func TestNew_WildcardPath(t *testing.T) {
	for _, path := range []string{"/list/*/id", "/list/*", "/*"} {
		if _, err := New("0", "Email/query", path); err != nil {
			t.Errorf("New with path %q returned error: %v", path, err)
		}
	}
}

func TestNew_Invalid(t *testing.T) {
	cases := []struct {
		resultOf, name, path string
	}{
		{"", "Email/query", "/ids"},    // empty resultOf
		{"0", "", "/ids"},              // empty name
		{"0", "Email/query", "ids"},    // pointer must start with /
	}
	for _, c := range cases {
		_, err := New(c.resultOf, c.name, c.path)
		var invalid *InvalidPathError
		if !errors.As(err, &invalid) {
			t.Errorf("New(%q,%q,%q) error = %v, want InvalidPathError",
				c.resultOf, c.name, c.path, err)
		}
	}
}

func TestToValue_CanonicalShape(t *testing.T) {
	ref := &Reference{ResultOf: "0", Name: "A/name", Path: "/ids"}
	got := ref.ToValue()
	want := value.Mapping{
		"resultOf": value.Str("0"),
		"name":     value.Str("A/name"),
		"path":     value.Str("/ids"),
	}
	if !value.Equal(got, want) {
		t.Errorf("ToValue = %v, want %v", got, want)
	}
}

func TestArgKey(t *testing.T) {
	if got := ArgKey("ids"); got != "#ids" {
		t.Errorf("ArgKey = %q, want #ids", got)
	}
	if !IsRefKey("#ids") {
		t.Error("expected #ids to be a reference key")
	}
	if IsRefKey("ids") {
		t.Error("expected ids not to be a reference key")
	}
}
