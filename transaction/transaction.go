package transaction

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/holiman/uint256"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // address hashing is fixed by the output format
)

const (
	HashSize       = 32
	PubKeyHashSize = 20
)

// Hash identifies a transaction: double SHA-256 of its encoding.
type Hash [HashSize]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func HashFromString(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, errors.Wrap(err, "decode hash")
	}
	if len(b) != HashSize {
		return h, errors.Errorf("hash length %d, expected %d", len(b), HashSize)
	}
	copy(h[:], b)
	return h, nil
}

// OutPoint references output Index of the transaction with hash Hash.
type OutPoint struct {
	Hash  Hash
	Index uint32
}

type TxIn struct {
	PrevOut   OutPoint
	Signature []byte
	PubKey    []byte
}

type TxOut struct {
	Value      *uint256.Int
	PubKeyHash [PubKeyHashSize]byte
}

type Tx struct {
	Version uint32
	Inputs  []TxIn
	Outputs []TxOut
}

func NewTx() *Tx {
	return &Tx{Version: TxVersion}
}

func (tx *Tx) AddInput(prev OutPoint) {
	tx.Inputs = append(tx.Inputs, TxIn{PrevOut: prev})
}

func (tx *Tx) AddOutput(value uint64, pkHash [PubKeyHashSize]byte) {
	tx.Outputs = append(tx.Outputs, TxOut{Value: uint256.NewInt(value), PubKeyHash: pkHash})
}

func (tx *Tx) Hash() Hash {
	return doubleSHA256(tx.Encode())
}

// PrevHashes returns the distinct transactions this one spends from, in input order.
func (tx *Tx) PrevHashes() []Hash {
	seen := make(map[Hash]struct{}, len(tx.Inputs))
	hashes := make([]Hash, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		if _, ok := seen[in.PrevOut.Hash]; ok {
			continue
		}
		seen[in.PrevOut.Hash] = struct{}{}
		hashes = append(hashes, in.PrevOut.Hash)
	}
	return hashes
}

// SignatureHash is the digest the signature on input idx commits to: the
// transaction with all signatures removed, the signed input carrying the
// spent output's pubkey hash, followed by the input index.
func (tx *Tx) SignatureHash(idx int, prevPkHash [PubKeyHashSize]byte) Hash {
	w := make([]byte, 0, tx.SerializeSize()+PubKeyHashSize+4)
	w = tx.appendTo(w, idx, prevPkHash[:])
	w = binary.LittleEndian.AppendUint32(w, uint32(idx))
	return doubleSHA256(w)
}

// PubKeyHash is RIPEMD160(SHA256(pubKey)).
func PubKeyHash(pubKey []byte) [PubKeyHashSize]byte {
	var out [PubKeyHashSize]byte
	sum := sha256.Sum256(pubKey)
	h := ripemd160.New()
	h.Write(sum[:])
	copy(out[:], h.Sum(nil))
	return out
}

func Address(pkHash [PubKeyHashSize]byte) string {
	return base58.Encode(pkHash[:])
}

func doubleSHA256(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}
