package domain_test

import (
	"testing"

	"checkline/internal/domain"
)

func TestMaskIdentity(t *testing.T) {
	addr := "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"
	masked := domain.MaskIdentity(addr)
	if masked != "0x90F8…c9C1" {
		t.Fatalf("unexpected mask %q", masked)
	}
	if short := domain.MaskIdentity("0xabc"); short != "0xabc" {
		t.Fatalf("short identities pass through, got %q", short)
	}
}
