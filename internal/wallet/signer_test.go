package wallet_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"checkline/internal/wallet"
)

// Well-known throwaway development key.
const testKey = "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d"

func TestAddressDerivation(t *testing.T) {
	s, err := wallet.New(testKey)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	want := "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"
	if !strings.EqualFold(s.Address(), want) {
		t.Fatalf("expected %s, got %s", want, s.Address())
	}
	// Same credential, same identity.
	s2, _ := wallet.New("0x" + testKey)
	if s2.Address() != s.Address() {
		t.Fatal("0x prefix changed derived address")
	}
}

func TestPublicKeyHex(t *testing.T) {
	s, err := wallet.New(testKey)
	if err != nil {
		t.Fatal(err)
	}
	pk := s.PublicKeyHex()
	if !strings.HasPrefix(pk, "0x04") {
		t.Fatalf("expected uncompressed key, got %q", pk[:6])
	}
	if len(pk) != 2+130 {
		t.Fatalf("unexpected public key length %d", len(pk))
	}
}

func TestSignMessage(t *testing.T) {
	s, err := wallet.New(testKey)
	if err != nil {
		t.Fatal(err)
	}
	sig, err := s.SignMessage("sign me: nonce-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.HasPrefix(sig, "0x") {
		t.Fatalf("expected hex signature, got %q", sig)
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	if err != nil {
		t.Fatalf("signature not hex: %v", err)
	}
	if len(raw) != 65 {
		t.Fatalf("expected 65-byte signature, got %d", len(raw))
	}
	if v := raw[64]; v != 27 && v != 28 {
		t.Fatalf("expected recovery id 27/28, got %d", v)
	}

	// Signing is deterministic for a given key and message.
	again, _ := s.SignMessage("sign me: nonce-1")
	if again != sig {
		t.Fatal("expected deterministic signature")
	}
	other, _ := s.SignMessage("different message")
	if other == sig {
		t.Fatal("different messages must not share a signature")
	}
}

func TestInvalidKeyRejected(t *testing.T) {
	if _, err := wallet.New("not-a-key"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}
