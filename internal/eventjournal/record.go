// Package eventjournal implements the single append-only log of externally
// observable events: orders, trades, position changes, funding,
// liquidations, hedges, and insurance draws. Every record carries a global
// monotonic sequence number; replaying the journal from empty state must
// reproduce identical books, positions, balances, and ledger.
package eventjournal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// Kind enumerates the event taxonomy from §6.
type Kind uint8

const (
	KindOrderSubmit Kind = iota + 1
	KindOrderCancel
	KindTrade
	KindPositionChange
	KindFunding
	KindLiquidation
	KindHedge
	KindInsurance
)

func (k Kind) String() string {
	switch k {
	case KindOrderSubmit:
		return "ORDER_SUBMIT"
	case KindOrderCancel:
		return "ORDER_CANCEL"
	case KindTrade:
		return "TRADE"
	case KindPositionChange:
		return "POSITION_CHANGE"
	case KindFunding:
		return "FUNDING"
	case KindLiquidation:
		return "LIQUIDATION"
	case KindHedge:
		return "HEDGE"
	case KindInsurance:
		return "INSURANCE"
	default:
		return fmt.Sprintf("KIND(%d)", uint8(k))
	}
}

// Record is one framed entry: {seq, ts, kind, payload} plus a trailing
// CRC32C of everything preceding it, per §6's event journal format.
type Record struct {
	Seq     uint64
	TSNanos int64
	Kind    Kind
	Payload []byte
}

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// headerSize is the fixed-width prefix before the variable-length payload:
// 4 (frame length) + 8 (seq) + 8 (ts) + 1 (kind).
const headerSize = 4 + 8 + 8 + 1

// Encode serializes r as a length-prefixed frame with a trailing CRC32C,
// appending it to buf and returning the result.
func Encode(buf []byte, r Record) []byte {
	body := make([]byte, headerSize-4+len(r.Payload))
	binary.BigEndian.PutUint64(body[0:8], r.Seq)
	binary.BigEndian.PutUint64(body[8:16], uint64(r.TSNanos))
	body[16] = byte(r.Kind)
	copy(body[17:], r.Payload)

	frameLen := uint32(len(body))
	crc := crc32.Checksum(body, crcTable)

	buf = binary.BigEndian.AppendUint32(buf, frameLen)
	buf = append(buf, body...)
	buf = binary.BigEndian.AppendUint32(buf, crc)
	return buf
}

// ErrCorrupt indicates a record's CRC32C trailer did not match its body —
// a fatal condition per §7 (event-journal write/read failure halts replay).
var ErrCorrupt = fmt.Errorf("eventjournal: corrupt record (crc mismatch)")

// Decode reads one frame from r. It returns io.EOF (unwrapped) when the
// stream ends cleanly at a frame boundary.
func Decode(r io.Reader) (Record, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Record{}, fmt.Errorf("eventjournal: truncated frame length: %w", err)
		}
		return Record{}, err
	}
	frameLen := binary.BigEndian.Uint32(lenBuf[:])

	body := make([]byte, frameLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return Record{}, fmt.Errorf("eventjournal: truncated frame body: %w", err)
	}

	var crcBuf [4]byte
	if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
		return Record{}, fmt.Errorf("eventjournal: truncated frame crc: %w", err)
	}
	wantCRC := binary.BigEndian.Uint32(crcBuf[:])
	if crc32.Checksum(body, crcTable) != wantCRC {
		return Record{}, ErrCorrupt
	}

	rec := Record{
		Seq:     binary.BigEndian.Uint64(body[0:8]),
		TSNanos: int64(binary.BigEndian.Uint64(body[8:16])),
		Kind:    Kind(body[16]),
		Payload: body[17:],
	}
	return rec, nil
}
