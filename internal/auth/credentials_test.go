package auth

import "testing"

func TestPlaintextScheme_ExactComparison(t *testing.T) {
	t.Parallel()

	s := PlaintextScheme{}
	stored, err := s.Hash("Pa55word")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if stored != "Pa55word" {
		t.Errorf("plaintext Hash = %q, want unchanged", stored)
	}

	tests := []struct {
		password string
		want     bool
	}{
		{"Pa55word", true},
		{"pa55word", false},
		{"Pa55word ", false},
		{"", false},
	}
	for _, tt := range tests {
		got, err := s.Verify(tt.password, stored)
		if err != nil {
			t.Fatalf("Verify(%q) error: %v", tt.password, err)
		}
		if got != tt.want {
			t.Errorf("Verify(%q) = %v, want %v", tt.password, got, tt.want)
		}
	}
}

func TestNewScheme(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]string{
		"":          SchemePlaintext,
		"plaintext": SchemePlaintext,
		"argon2":    SchemeArgon2,
	} {
		s, err := NewScheme(name)
		if err != nil {
			t.Fatalf("NewScheme(%q) error: %v", name, err)
		}
		if s.Name() != want {
			t.Errorf("NewScheme(%q).Name() = %q, want %q", name, s.Name(), want)
		}
	}

	if _, err := NewScheme("bcrypt"); err == nil {
		t.Error("NewScheme(bcrypt) should fail")
	}
}
