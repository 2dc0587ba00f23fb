package types

import "testing"

func TestParseIdentity(t *testing.T) {
	long := make([]byte, MaxIdentityLength+1)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name    string
		in      string
		want    Identity
		wantErr bool
	}{
		{"plain", "alice", "alice", false},
		{"trimmed", "  0xabc  ", "0xabc", false},
		{"empty", "", Nobody, true},
		{"blank", "   ", Nobody, true},
		{"too long", string(long), Nobody, true},
		{"control", "bob\x00", Nobody, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentity(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIdentityIsZero(t *testing.T) {
	if !Nobody.IsZero() {
		t.Error("Nobody should be zero")
	}
	if Identity("alice").IsZero() {
		t.Error("alice should not be zero")
	}
}
