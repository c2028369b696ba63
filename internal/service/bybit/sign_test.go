package bybit

import (
	"errors"
	"testing"
	"time"
)

var signTime = time.UnixMilli(1717000000000)

func TestSignDeterministic(t *testing.T) {
	creds := Credentials{APIKey: "key", APISecret: "secret"}
	a, err := creds.Sign("accountType=UNIFIED", "20000", signTime)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	b, err := creds.Sign("accountType=UNIFIED", "20000", signTime)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if a != b {
		t.Fatalf("identical inputs produced different signatures: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256 signature, got %q", a)
	}
}

func TestSignSensitivity(t *testing.T) {
	creds := Credentials{APIKey: "key", APISecret: "secret"}
	base, _ := creds.Sign("accountType=UNIFIED", "20000", signTime)

	variants := []string{
		"accountType=UNIFIEd", // one byte changed
		"accountType=UNIFIED&x=1",
		"",
	}
	for _, payload := range variants {
		sig, _ := creds.Sign(payload, "20000", signTime)
		if sig == base {
			t.Fatalf("payload %q collided with base signature", payload)
		}
	}

	// differing timestamp
	sig, _ := creds.Sign("accountType=UNIFIED", "20000", signTime.Add(time.Millisecond))
	if sig == base {
		t.Fatalf("timestamp change did not change signature")
	}

	// differing recv window
	sig, _ = creds.Sign("accountType=UNIFIED", "5000", signTime)
	if sig == base {
		t.Fatalf("recv window change did not change signature")
	}
}

func TestSignCredentialsMissing(t *testing.T) {
	for _, creds := range []Credentials{
		{},
		{APIKey: "key"},
		{APISecret: "secret"},
	} {
		if _, err := creds.Sign("q=1", "20000", signTime); !errors.Is(err, ErrCredentialsMissing) {
			t.Fatalf("creds %+v: got %v, want ErrCredentialsMissing", creds, err)
		}
	}
}

func TestAuthHeaders(t *testing.T) {
	creds := Credentials{APIKey: "key", APISecret: "secret"}
	h, err := creds.AuthHeaders("accountType=UNIFIED", "20000", signTime)
	if err != nil {
		t.Fatalf("headers: %v", err)
	}
	if h[headerAPIKey] != "key" {
		t.Fatalf("api key header = %q", h[headerAPIKey])
	}
	if h[headerTimestamp] != "1717000000000" {
		t.Fatalf("timestamp header = %q", h[headerTimestamp])
	}
	if h[headerRecvWindow] != "20000" {
		t.Fatalf("recv window header = %q", h[headerRecvWindow])
	}
	want, _ := creds.Sign("accountType=UNIFIED", "20000", signTime)
	if h[headerSign] != want {
		t.Fatalf("sign header mismatch")
	}
}
