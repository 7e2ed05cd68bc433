package normalize

import "testing"

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"openeo-python-client", "openeo-python-client"},
		{"My Project", "my-project"},
		{"Überdocs", "uberdocs"},
		{"docs//v2", "docs-v2"},
		{"--weird--", "weird"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Slug(tc.in); got != tc.want {
			t.Errorf("Slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
