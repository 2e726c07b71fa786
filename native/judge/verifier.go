package judge

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// PayloadDigest computes the keccak-256 content hash that binds a resolver
// payload to its commitment.
func PayloadDigest(payload []byte) [32]byte {
	return ethcrypto.Keccak256Hash(payload)
}

// RecoverSigner recovers the 20-byte address that produced a 65-byte
// [R || S || V] signature over the given digest.
func RecoverSigner(digest [32]byte, sig []byte) ([20]byte, error) {
	pub, err := ethcrypto.SigToPub(digest[:], sig)
	if err != nil {
		return [20]byte{}, err
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// VerifyCommitment checks a revealed commitment against the two registered
// participants. Authorship is checked first: the signature must recover to
// user1 or user2, proving intent over the digest without reference to the
// payload. Only then is the payload bound to the digest by recomputing its
// hash. Both inputs are pure; no state is read or written.
func VerifyCommitment(digest [32]byte, sig, payload []byte, user1, user2 [20]byte) ([20]byte, error) {
	signer, err := RecoverSigner(digest, sig)
	if err != nil {
		return [20]byte{}, ErrInvalidSignature
	}
	if signer != user1 && signer != user2 {
		return [20]byte{}, ErrInvalidSignature
	}
	if PayloadDigest(payload) != digest {
		return [20]byte{}, ErrCommitmentMismatch
	}
	return signer, nil
}
