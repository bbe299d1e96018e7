package transaction

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/pkg/errors"
)

// SignatureVerifier checks a signature over a signature hash.
// Implementations must be deterministic in their three arguments.
type SignatureVerifier interface {
	Verify(sigHash Hash, pubKey, sig []byte) bool
}

// Secp256k1Verifier checks DER encoded ECDSA signatures. Malformed keys or
// signatures fail verification, they are not reported as errors.
type Secp256k1Verifier struct{}

func (Secp256k1Verifier) Verify(sigHash Hash, pubKey, sig []byte) bool {
	if len(pubKey) == 0 || len(sig) == 0 {
		return false
	}
	pub, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return false
	}
	signature, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return signature.Verify(sigHash[:], pub)
}

// Sign fills input idx of tx with a signature spending the output of prev it references.
func Sign(tx *Tx, idx int, prev *Tx, key *secp256k1.PrivateKey) error {
	if idx < 0 || idx >= len(tx.Inputs) {
		return errors.Errorf("input %d out of range", idx)
	}
	in := &tx.Inputs[idx]
	if in.PrevOut.Hash != prev.Hash() {
		return errors.Errorf("input %d does not spend %s", idx, prev.Hash())
	}
	if int(in.PrevOut.Index) >= len(prev.Outputs) {
		return errors.Errorf("input %d references missing output %d", idx, in.PrevOut.Index)
	}
	pkHash := prev.Outputs[in.PrevOut.Index].PubKeyHash
	pub := key.PubKey().SerializeCompressed()
	if PubKeyHash(pub) != pkHash {
		return errors.Errorf("key does not own output %d of %s", in.PrevOut.Index, prev.Hash())
	}

	sigHash := tx.SignatureHash(idx, pkHash)
	in.Signature = ecdsa.Sign(key, sigHash[:]).Serialize()
	in.PubKey = pub
	return nil
}

// VerifyInput reports whether input idx of tx validly spends its output of prev.
func VerifyInput(prev, tx *Tx, idx int, v SignatureVerifier) bool {
	if prev == nil || tx == nil || idx < 0 || idx >= len(tx.Inputs) {
		return false
	}
	in := tx.Inputs[idx]
	if in.PrevOut.Hash != prev.Hash() || int(in.PrevOut.Index) >= len(prev.Outputs) {
		return false
	}
	pkHash := prev.Outputs[in.PrevOut.Index].PubKeyHash
	if len(in.PubKey) == 0 || PubKeyHash(in.PubKey) != pkHash {
		return false
	}
	return v.Verify(tx.SignatureHash(idx, pkHash), in.PubKey, in.Signature)
}
