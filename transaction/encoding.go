package transaction

import (
	"encoding/binary"
	"math"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

const (
	TxVersion       = 2
	LegacyTxVersion = 1
)

var (
	ErrTruncated        = errors.New("transaction: truncated encoding")
	ErrTrailingBytes    = errors.New("transaction: trailing bytes after encoding")
	ErrNonCanonicalSize = errors.New("transaction: non-canonical compact size")
	ErrCountTooLarge    = errors.New("transaction: element count exceeds encoding length")
	ErrVersionMismatch  = errors.New("transaction: version not handled by decoder")
	ErrNoInputs         = errors.New("transaction: no inputs")
	ErrEmptyEncoding    = errors.New("transaction: empty encoding")
)

// decoder handles one wire layout. Decoders are tried in order by Decode.
type decoder struct {
	name   string
	accept func(version uint32) bool
	value  func(r *reader) (*uint256.Int, error)
}

var decoders = []decoder{
	{
		name:   "v2",
		accept: func(version uint32) bool { return version != LegacyTxVersion },
		value:  readValue256,
	},
	{
		name:   "legacy",
		accept: func(version uint32) bool { return version == LegacyTxVersion },
		value:  readValue64,
	},
}

// Decode parses raw with the first decoder that accepts it.
func Decode(raw []byte) (*Tx, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyEncoding
	}
	var firstErr error
	for _, d := range decoders {
		tx, err := d.decode(raw)
		if err == nil {
			return tx, nil
		}
		if firstErr == nil || errors.Cause(firstErr) == ErrVersionMismatch {
			firstErr = errors.Wrapf(err, "%s decoder", d.name)
		}
	}
	return nil, firstErr
}

func (d decoder) decode(raw []byte) (*Tx, error) {
	r := &reader{buf: raw}

	version, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if !d.accept(version) {
		return nil, ErrVersionMismatch
	}
	tx := &Tx{Version: version}

	inCount, err := r.count()
	if err != nil {
		return nil, err
	}
	if inCount == 0 {
		return nil, ErrNoInputs
	}
	tx.Inputs = make([]TxIn, inCount)
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		h, err := r.read(HashSize)
		if err != nil {
			return nil, err
		}
		copy(in.PrevOut.Hash[:], h)
		if in.PrevOut.Index, err = r.uint32(); err != nil {
			return nil, err
		}
		if in.Signature, err = r.varBytes(); err != nil {
			return nil, err
		}
		if in.PubKey, err = r.varBytes(); err != nil {
			return nil, err
		}
	}

	outCount, err := r.count()
	if err != nil {
		return nil, err
	}
	tx.Outputs = make([]TxOut, outCount)
	for i := range tx.Outputs {
		out := &tx.Outputs[i]
		if out.Value, err = d.value(r); err != nil {
			return nil, err
		}
		pk, err := r.read(PubKeyHashSize)
		if err != nil {
			return nil, err
		}
		copy(out.PubKeyHash[:], pk)
	}

	if r.remaining() != 0 {
		return nil, ErrTrailingBytes
	}
	return tx, nil
}

// Encode returns the wire form. Version 1 transactions use the legacy 8 byte value layout.
func (tx *Tx) Encode() []byte {
	w := make([]byte, 0, tx.SerializeSize())
	return tx.appendTo(w, -1, nil)
}

func (tx *Tx) SerializeSize() int {
	n := 4 + compactSizeLen(uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		n += HashSize + 4
		n += compactSizeLen(uint64(len(in.Signature))) + len(in.Signature)
		n += compactSizeLen(uint64(len(in.PubKey))) + len(in.PubKey)
	}
	n += compactSizeLen(uint64(len(tx.Outputs)))
	valueSize := 32
	if tx.Version == LegacyTxVersion {
		valueSize = 8
	}
	n += len(tx.Outputs) * (valueSize + PubKeyHashSize)
	return n
}

// appendTo writes the encoding. When signIdx >= 0 every signature is blanked
// and the pubkey of input signIdx is replaced by subPubKey.
func (tx *Tx) appendTo(w []byte, signIdx int, subPubKey []byte) []byte {
	w = binary.LittleEndian.AppendUint32(w, tx.Version)
	w = appendCompactSize(w, uint64(len(tx.Inputs)))
	for i, in := range tx.Inputs {
		w = append(w, in.PrevOut.Hash[:]...)
		w = binary.LittleEndian.AppendUint32(w, in.PrevOut.Index)
		sig, pub := in.Signature, in.PubKey
		if signIdx >= 0 {
			sig, pub = nil, nil
			if i == signIdx {
				pub = subPubKey
			}
		}
		w = appendVarBytes(w, sig)
		w = appendVarBytes(w, pub)
	}
	w = appendCompactSize(w, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		value := out.Value
		if value == nil {
			value = new(uint256.Int)
		}
		if tx.Version == LegacyTxVersion {
			w = binary.LittleEndian.AppendUint64(w, value.Uint64())
		} else {
			b := value.Bytes32()
			w = append(w, b[:]...)
		}
		w = append(w, out.PubKeyHash[:]...)
	}
	return w
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) read(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, ErrTruncated
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) compactSize() (uint64, error) {
	b, err := r.read(1)
	if err != nil {
		return 0, err
	}
	var v, floor uint64
	switch b[0] {
	case 0xfd:
		p, err := r.read(2)
		if err != nil {
			return 0, err
		}
		v, floor = uint64(binary.LittleEndian.Uint16(p)), 0xfd
	case 0xfe:
		v32, err := r.uint32()
		if err != nil {
			return 0, err
		}
		v, floor = uint64(v32), 0x10000
	case 0xff:
		if v, err = r.uint64(); err != nil {
			return 0, err
		}
		floor = 0x100000000
	default:
		return uint64(b[0]), nil
	}
	if v < floor {
		return 0, ErrNonCanonicalSize
	}
	return v, nil
}

// count reads an element count. Every element takes at least one byte, so a
// count larger than what is left can be refused before allocating.
func (r *reader) count() (int, error) {
	n, err := r.compactSize()
	if err != nil {
		return 0, err
	}
	if n > uint64(r.remaining()) || n > math.MaxInt32 {
		return 0, ErrCountTooLarge
	}
	return int(n), nil
}

func (r *reader) varBytes() ([]byte, error) {
	n, err := r.compactSize()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.remaining()) {
		return nil, ErrTruncated
	}
	if n == 0 {
		return nil, nil
	}
	b, err := r.read(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func readValue256(r *reader) (*uint256.Int, error) {
	b, err := r.read(32)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes32(b), nil
}

func readValue64(r *reader) (*uint256.Int, error) {
	v, err := r.uint64()
	if err != nil {
		return nil, err
	}
	return uint256.NewInt(v), nil
}

func compactSizeLen(v uint64) int {
	switch {
	case v < 0xfd:
		return 1
	case v <= math.MaxUint16:
		return 3
	case v <= math.MaxUint32:
		return 5
	default:
		return 9
	}
}

func appendCompactSize(w []byte, v uint64) []byte {
	switch {
	case v < 0xfd:
		return append(w, byte(v))
	case v <= math.MaxUint16:
		w = append(w, 0xfd)
		return binary.LittleEndian.AppendUint16(w, uint16(v))
	case v <= math.MaxUint32:
		w = append(w, 0xfe)
		return binary.LittleEndian.AppendUint32(w, uint32(v))
	default:
		w = append(w, 0xff)
		return binary.LittleEndian.AppendUint64(w, v)
	}
}

func appendVarBytes(w, b []byte) []byte {
	w = appendCompactSize(w, uint64(len(b)))
	return append(w, b...)
}
