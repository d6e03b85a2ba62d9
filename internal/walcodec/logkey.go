package walcodec

import (
	"encoding/binary"
	"fmt"

	"github.com/QuintinTao/ceresdb/internal/waltypes"
)

// PlainLogKeySize is the fixed width of a plain log key:
// namespace(1) ‖ region_id(8) ‖ sequence_num(8) ‖ version(1).
const PlainLogKeySize = 1 + 8 + 8 + 1

// LogKeyEncoder produces plain log keys, the shape used when a
// region's log carries a single logical table and the table_id does not
// need to appear in the key at all.
type LogKeyEncoder struct {
	Version Version
}

// NewLogKeyEncoder returns an encoder pinned to the current wire version.
func NewLogKeyEncoder() LogKeyEncoder {
	return LogKeyEncoder{Version: CurrentVersion}
}

// EncodeKey appends the 18-byte encoding of (regionID, seq) to buf.
func (e LogKeyEncoder) EncodeKey(buf []byte, regionID waltypes.RegionId, seq waltypes.SequenceNumber) []byte {
	var scratch [PlainLogKeySize]byte
	scratch[0] = byte(NamespaceLog)
	binary.BigEndian.PutUint64(scratch[1:9], uint64(regionID))
	binary.BigEndian.PutUint64(scratch[9:17], uint64(seq))
	scratch[17] = byte(e.Version)
	return append(buf, scratch[:]...)
}

// MinKey returns the smallest key for regionID (sequence = MinSequenceNumber).
func (e LogKeyEncoder) MinKey(regionID waltypes.RegionId) []byte {
	return e.EncodeKey(nil, regionID, waltypes.MinSequenceNumber)
}

// MaxKey returns the largest key for regionID at the given inclusive
// sequence bound.
func (e LogKeyEncoder) MaxKey(regionID waltypes.RegionId, seq waltypes.SequenceNumber) []byte {
	return e.EncodeKey(nil, regionID, seq)
}

// IsLogKey inspects only the namespace byte; it never fails on a short
// buffer beyond reporting false.
func IsLogKey(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}
	return Namespace(buf[0]) == NamespaceLog
}

// LogKeyDecoder parses plain log keys produced by LogKeyEncoder.
type LogKeyDecoder struct {
	Version Version
}

// NewLogKeyDecoder returns a decoder expecting the current wire version.
func NewLogKeyDecoder() LogKeyDecoder {
	return LogKeyDecoder{Version: CurrentVersion}
}

// DecodeKey parses a plain log key, validating namespace and version.
// The namespace byte is checked before the length, so a shorter key from
// another namespace (a meta key, say) fails with InvalidNamespace.
func (d LogKeyDecoder) DecodeKey(buf []byte) (waltypes.RegionId, waltypes.SequenceNumber, error) {
	if len(buf) == 0 {
		return 0, 0, fmt.Errorf("%w: plain log key needs %d bytes, got 0: %w",
			ErrDecodeLogKey, PlainLogKeySize, ErrBufferTooShort)
	}
	ns := Namespace(buf[0])
	if ns != NamespaceLog {
		return 0, 0, fmt.Errorf("%w: %w", ErrDecodeLogKey, &InvalidNamespace{Expect: NamespaceLog, Given: ns})
	}
	if len(buf) < PlainLogKeySize {
		return 0, 0, fmt.Errorf("%w: plain log key needs %d bytes, got %d: %w",
			ErrDecodeLogKey, PlainLogKeySize, len(buf), ErrBufferTooShort)
	}
	version := Version(buf[PlainLogKeySize-1])
	if version != d.Version {
		return 0, 0, fmt.Errorf("%w: %w", ErrDecodeLogKey, &InvalidVersion{Expect: d.Version, Given: version})
	}
	regionID := waltypes.RegionId(binary.BigEndian.Uint64(buf[1:9]))
	seq := waltypes.SequenceNumber(binary.BigEndian.Uint64(buf[9:17]))
	return regionID, seq, nil
}
