// Package wal implements the ledger's write-ahead log: a flat,
// append-only, checksummed, replayable sequence of fixed-width records
// with optional inline checkpoint snapshots, per spec.md §4.4 and §6.2.
package wal

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kumarlokesh/ledgerd/internal/crc32"
)

// Op identifies a WAL record's kind. Numeric values are an on-disk wire
// format and must not be reordered.
type Op byte

const (
	OpBeginTx Op = iota + 1
	OpDebit
	OpCredit
	OpCommit
	OpAbort
	OpCheckpoint
	OpCreateAccount
)

func (op Op) String() string {
	switch op {
	case OpBeginTx:
		return "BEGIN_TX"
	case OpDebit:
		return "DEBIT"
	case OpCredit:
		return "CREDIT"
	case OpCommit:
		return "COMMIT"
	case OpAbort:
		return "ABORT"
	case OpCheckpoint:
		return "CHECKPOINT"
	case OpCreateAccount:
		return "CREATE_ACCOUNT"
	default:
		return fmt.Sprintf("Op(%d)", byte(op))
	}
}

const (
	// CurrencyLen is the width of a record's currency field.
	CurrencyLen = 4
	// PayloadSize is the fixed 32-byte record payload, per spec.md §6.2.
	PayloadSize = 32
	// RecordSize is the payload plus its 4-byte trailing CRC32.
	RecordSize = PayloadSize + 4
)

// ErrChecksumMismatch indicates a record's trailing CRC32 didn't match its
// payload — the record (or the file around it) is corrupt.
var ErrChecksumMismatch = errors.New("wal: checksum mismatch")

// ErrShortRecord indicates fewer than RecordSize bytes were available
// where a full record was expected, other than a clean end-of-file.
var ErrShortRecord = errors.New("wal: short record")

// Record is one WAL entry: the 32-byte payload described in spec.md §6.2.
// For OpCheckpoint, TxID carries the byte length of the inline snapshot
// that immediately follows the record on disk, rather than a transaction
// id.
type Record struct {
	Op        Op
	TxID      uint64
	AccountID uint32
	Amount    int64
	AcctType  uint32
	Currency  [CurrencyLen]byte
}

// Encode serializes the record into its 36-byte on-disk form: the 32-byte
// payload followed by the little-endian CRC32 of that payload.
func (r Record) Encode() [RecordSize]byte {
	var buf [RecordSize]byte
	buf[0] = byte(r.Op)
	// bytes 1-3 reserved, left zero
	binary.LittleEndian.PutUint64(buf[4:12], r.TxID)
	binary.LittleEndian.PutUint32(buf[12:16], r.AccountID)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(r.Amount))
	binary.LittleEndian.PutUint32(buf[24:28], r.AcctType)
	copy(buf[28:32], r.Currency[:])

	crc := crc32.Checksum(buf[:PayloadSize])
	binary.LittleEndian.PutUint32(buf[PayloadSize:RecordSize], crc)
	return buf
}

// Decode parses a RecordSize-byte buffer into a Record, verifying the
// trailing CRC32 against the payload.
func Decode(buf []byte) (Record, error) {
	if len(buf) < RecordSize {
		return Record{}, fmt.Errorf("%w: got %d bytes, want %d", ErrShortRecord, len(buf), RecordSize)
	}

	stored := binary.LittleEndian.Uint32(buf[PayloadSize:RecordSize])
	computed := crc32.Checksum(buf[:PayloadSize])
	if stored != computed {
		return Record{}, ErrChecksumMismatch
	}

	var r Record
	r.Op = Op(buf[0])
	r.TxID = binary.LittleEndian.Uint64(buf[4:12])
	r.AccountID = binary.LittleEndian.Uint32(buf[12:16])
	r.Amount = int64(binary.LittleEndian.Uint64(buf[16:24]))
	r.AcctType = binary.LittleEndian.Uint32(buf[24:28])
	copy(r.Currency[:], buf[28:32])
	return r, nil
}
