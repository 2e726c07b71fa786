package judge

import (
	"errors"
	"testing"
)

func TestRecoverSignerRoundTrip(t *testing.T) {
	key, addr := mustGenerateParticipant(t)
	digest := PayloadDigest([]byte("commitment payload"))
	sig := signDigest(t, digest, key)

	signer, err := RecoverSigner(digest, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if signer != addr {
		t.Fatalf("expected signer %x, got %x", addr, signer)
	}
}

func TestRecoverSignerGarbageSignature(t *testing.T) {
	digest := PayloadDigest([]byte("payload"))
	if _, err := RecoverSigner(digest, []byte{0x01, 0x02}); err == nil {
		t.Fatalf("expected error for malformed signature")
	}
}

func TestVerifyCommitmentAcceptsEitherParticipant(t *testing.T) {
	key1, user1 := mustGenerateParticipant(t)
	key2, user2 := mustGenerateParticipant(t)
	payload := []byte("agreed resolver code")
	digest := PayloadDigest(payload)

	signer, err := VerifyCommitment(digest, signDigest(t, digest, key1), payload, user1, user2)
	if err != nil {
		t.Fatalf("verify user1: %v", err)
	}
	if signer != user1 {
		t.Fatalf("expected user1 as signer")
	}
	signer, err = VerifyCommitment(digest, signDigest(t, digest, key2), payload, user1, user2)
	if err != nil {
		t.Fatalf("verify user2: %v", err)
	}
	if signer != user2 {
		t.Fatalf("expected user2 as signer")
	}
}

func TestVerifyCommitmentRejectsOutsider(t *testing.T) {
	_, user1 := mustGenerateParticipant(t)
	_, user2 := mustGenerateParticipant(t)
	outsiderKey, _ := mustGenerateParticipant(t)
	payload := []byte("payload")
	digest := PayloadDigest(payload)

	if _, err := VerifyCommitment(digest, signDigest(t, digest, outsiderKey), payload, user1, user2); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyCommitmentChecksSignatureBeforeBinding(t *testing.T) {
	_, user1 := mustGenerateParticipant(t)
	_, user2 := mustGenerateParticipant(t)
	outsiderKey, _ := mustGenerateParticipant(t)
	committed := PayloadDigest([]byte("committed payload"))

	// Outsider signature and mismatched payload: the signature failure wins
	// because authorship is checked first.
	if _, err := VerifyCommitment(committed, signDigest(t, committed, outsiderKey), []byte("other payload"), user1, user2); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyCommitmentRejectsTamperedPayload(t *testing.T) {
	key1, user1 := mustGenerateParticipant(t)
	_, user2 := mustGenerateParticipant(t)
	committed := PayloadDigest([]byte("committed payload"))

	if _, err := VerifyCommitment(committed, signDigest(t, committed, key1), []byte("tampered payload"), user1, user2); !errors.Is(err, ErrCommitmentMismatch) {
		t.Fatalf("expected ErrCommitmentMismatch, got %v", err)
	}
}

func TestPayloadDigestDeterministic(t *testing.T) {
	a := PayloadDigest([]byte("payload"))
	b := PayloadDigest([]byte("payload"))
	if a != b {
		t.Fatalf("expected deterministic digest")
	}
	if a == PayloadDigest([]byte("payload!")) {
		t.Fatalf("expected distinct digests for distinct payloads")
	}
}
