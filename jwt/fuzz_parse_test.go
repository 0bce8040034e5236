package jwt

import (
	"testing"
	"time"
)

func FuzzParseTicket(f *testing.F) {
	pub, priv := newEdKeys(f)
	mgr, err := NewManager(Config{
		TTL:           5 * time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "fuzz-test",
		Leeway:        30 * time.Second,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub},
	})
	if err != nil {
		f.Fatal(err)
	}

	valid, _, err := mgr.Issue("h1", 789, time.Time{})
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJFZERTQSJ9.eyJzaWQiOiJ0ZXN0In0.invalid")
	f.Add("eyJhbGciOiJub25lIn0.eyJzaWQiOiJ0ZXN0In0.")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := mgr.Parse(input)
		if err != nil {
			return
		}
		if claims == nil || claims.SID == "" {
			t.Fatal("Parse accepted a ticket without a session handle")
		}
	})
}
