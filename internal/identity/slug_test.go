package identity

import "testing"

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Acme Lending!!":  "acme-lending",
		"acme-lending":    "acme-lending",
		"  Foo   Bar  ":   "foo-bar",
		"123 Main St.":    "123-main-st",
		"UPPER_case.name": "upper-case-name",
		"---":             "",
		"":                "",
		"a":               "a",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
