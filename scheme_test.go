package dualauth

import "testing"

func TestParseScheme(t *testing.T) {
	cases := map[string]Scheme{
		"cookie": SchemeCookie,
		"jwt":    SchemeJWT,
		"JWT":    SchemeUnknown,
		"Cookie": SchemeUnknown,
		"":       SchemeUnknown,
		"basic":  SchemeUnknown,
		" jwt":   SchemeUnknown,
	}
	for in, want := range cases {
		if got := ParseScheme(in); got != want {
			t.Errorf("ParseScheme(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSchemeStringRoundTrip(t *testing.T) {
	for _, s := range []Scheme{SchemeCookie, SchemeJWT} {
		if !s.Valid() {
			t.Fatalf("%v should be valid", s)
		}
		if ParseScheme(s.String()) != s {
			t.Fatalf("round trip failed for %v", s)
		}
	}
	if SchemeUnknown.Valid() || Scheme(9).Valid() {
		t.Fatal("unknown schemes must be invalid")
	}
	if Scheme(9).String() != "unknown" {
		t.Fatalf("String() = %q", Scheme(9).String())
	}
}

func TestIdentityHasRole(t *testing.T) {
	id := &Identity{Role: "User"}
	if !id.HasRole() {
		t.Fatal("empty requirement must pass")
	}
	if id.HasRole("Admin") || id.HasRole("user") {
		t.Fatal("role match is exact")
	}
	if !id.HasRole("Admin", "User") {
		t.Fatal("membership in set must pass")
	}
	var nilID *Identity
	if nilID.HasRole() {
		t.Fatal("nil identity has no role")
	}
}
