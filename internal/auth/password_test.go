package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(bcrypt.MinCost)
}

// =========================================================================
// Hash TESTS
// =========================================================================

func TestHash_OutputLooksBcrypt(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") && !strings.HasPrefix(hash, "$2b$") {
		t.Errorf("Hash() does not look like a bcrypt hash: %q", hash)
	}
}

func TestHash_SamePasswordProducesDifferentHashes(t *testing.T) {
	ps := newTestPasswordService()

	hash1, _ := ps.Hash("same-password")
	hash2, _ := ps.Hash("same-password")

	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password (salt must be random)")
	}
}

func TestHash_LengthLimit(t *testing.T) {
	ps := newTestPasswordService()

	if _, err := ps.Hash(strings.Repeat("a", 73)); err == nil {
		t.Fatal("Hash() should return an error for passwords longer than 72 bytes")
	}
	if _, err := ps.Hash(strings.Repeat("a", 72)); err != nil {
		t.Fatalf("Hash() should accept a 72-byte password, got error: %v", err)
	}
}

func TestNewPasswordService_CostRange(t *testing.T) {
	if got := NewPasswordService(0).cost; got != DefaultCost {
		t.Errorf("cost = %d, want %d", got, DefaultCost)
	}
	if got := NewPasswordService(10).cost; got != 10 {
		t.Errorf("cost = %d, want 10", got)
	}
}

// =========================================================================
// Verify TESTS
// =========================================================================

func TestVerify(t *testing.T) {
	ps := newTestPasswordService()
	hash, err := ps.Hash("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if err := ps.Verify(hash, "correct-horse-battery-staple"); err != nil {
		t.Errorf("Verify() should return nil for a correct password, got: %v", err)
	}
	if err := ps.Verify(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("Verify() error = %v, want ErrPasswordMismatch", err)
	}
	if err := ps.Verify(hash, ""); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("Verify() error = %v, want ErrPasswordMismatch for empty password", err)
	}
}

func TestVerify_CorruptHash(t *testing.T) {
	ps := newTestPasswordService()

	err := ps.Verify("not-a-hash", "anything")
	if err == nil || errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("Verify() error = %v, want a non-mismatch error", err)
	}
}
