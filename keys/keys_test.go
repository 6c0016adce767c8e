package keys_test

import (
	"context"
	"strings"
	"testing"

	tokengate "github.com/chimerakang/tokengate-go"
	"github.com/chimerakang/tokengate-go/keys"
)

func key(id string) tokengate.SigningKey {
	return tokengate.SigningKey{ID: id, Secret: []byte(strings.Repeat(id, 32))}
}

func ids(ks []tokengate.SigningKey) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = k.ID
	}
	return out
}

func TestNewRing_Validation(t *testing.T) {
	tests := []struct {
		name    string
		current tokengate.SigningKey
		prev    []tokengate.SigningKey
		wantErr bool
	}{
		{"valid single", key("a"), nil, false},
		{"valid with previous", key("a"), []tokengate.SigningKey{key("b")}, false},
		{"empty id", tokengate.SigningKey{Secret: []byte(strings.Repeat("x", 32))}, nil, true},
		{"short secret", tokengate.SigningKey{ID: "a", Secret: []byte("short")}, nil, true},
		{"duplicate id", key("a"), []tokengate.SigningKey{key("a")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := keys.NewRing(tt.current, tt.prev...)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewRing() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRing_SigningAndVerificationKeys(t *testing.T) {
	r, err := keys.NewRing(key("a"), key("b"))
	if err != nil {
		t.Fatalf("NewRing() error: %v", err)
	}
	ctx := context.Background()

	k, err := r.SigningKey(ctx)
	if err != nil {
		t.Fatalf("SigningKey() error: %v", err)
	}
	if k.ID != "a" {
		t.Errorf("SigningKey().ID = %q, want %q", k.ID, "a")
	}

	vks, _ := r.VerificationKeys(ctx)
	if got := strings.Join(ids(vks), ","); got != "a,b" {
		t.Errorf("VerificationKeys() = %s, want a,b", got)
	}
}

func TestRing_Rotate(t *testing.T) {
	r, _ := keys.NewStatic("k1", []byte(strings.Repeat("1", 32)))
	ctx := context.Background()

	for _, id := range []string{"k2", "k3", "k4", "k5"} {
		if err := r.Rotate(key(id)); err != nil {
			t.Fatalf("Rotate(%s) error: %v", id, err)
		}
	}

	cur, _ := r.SigningKey(ctx)
	if cur.ID != "k5" {
		t.Errorf("current = %q, want k5", cur.ID)
	}
	vks, _ := r.VerificationKeys(ctx)
	if got := strings.Join(ids(vks), ","); got != "k5,k4,k3,k2" {
		t.Errorf("VerificationKeys() = %s, want k5,k4,k3,k2 (k1 dropped)", got)
	}

	if err := r.Rotate(key("k5")); err == nil {
		t.Error("Rotate() to the current key should fail")
	}
	if err := r.Rotate(tokengate.SigningKey{ID: "bad", Secret: []byte("x")}); err == nil {
		t.Error("Rotate() with a short secret should fail")
	}
}

func TestParseKeys(t *testing.T) {
	secret := strings.Repeat("s", 32)
	got, err := keys.ParseKeys([]string{"old=" + secret, "", "older=" + secret})
	if err != nil {
		t.Fatalf("ParseKeys() error: %v", err)
	}
	if strings.Join(ids(got), ",") != "old,older" {
		t.Errorf("ParseKeys() ids = %v", ids(got))
	}

	_, err = keys.ParseKey("no-separator-" + secret)
	if err == nil {
		t.Fatal("ParseKey() expected error without separator")
	}
	if strings.Contains(err.Error(), secret) {
		t.Errorf("ParseKey() error leaks the secret: %v", err)
	}
}
