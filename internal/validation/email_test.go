package validation

import (
	"strings"
	"testing"
)

func TestValidEmail_Valid(t *testing.T) {
	valids := []string{
		"a@b.co",
		"john.doe@example.com",
		"user+tag@sub.domain.io",
	}
	for _, v := range valids {
		if !ValidEmail(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}
}

func TestValidEmail_Invalid(t *testing.T) {
	invalids := []string{
		"",
		"plainaddress",
		"@no-local.com",
		"no-at.example.com",
		"John Doe <john@example.com>", // forma con display name no se acepta
		"spaces in@example.com",
		strings.Repeat("a", 250) + "@x.co", // > 254
	}
	for _, v := range invalids {
		if ValidEmail(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

func TestValidTenantName(t *testing.T) {
	if !ValidTenantName("Acme Lending!!") {
		t.Fatal("expected valid")
	}
	if ValidTenantName("!!--!!") {
		t.Fatal("expected invalid: no alphanumerics")
	}
	if ValidTenantName("   ") {
		t.Fatal("expected invalid: blank")
	}
	if ValidTenantName(strings.Repeat("a", 121)) {
		t.Fatal("expected invalid: too long")
	}
}
