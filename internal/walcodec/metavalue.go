package walcodec

import (
	"encoding/binary"
	"fmt"

	"github.com/QuintinTao/ceresdb/internal/waltypes"
)

// MaxSeqMetaValueSize is the fixed width of a max-sequence meta value:
// version(1) ‖ max_seq(8).
const MaxSeqMetaValueSize = 1 + 8

// MaxSeqMetaValueEncoder produces max-sequence meta values.
type MaxSeqMetaValueEncoder struct {
	Version Version
}

func NewMaxSeqMetaValueEncoder() MaxSeqMetaValueEncoder {
	return MaxSeqMetaValueEncoder{Version: CurrentVersion}
}

func (e MaxSeqMetaValueEncoder) EncodeValue(buf []byte, maxSeq waltypes.SequenceNumber) []byte {
	var scratch [MaxSeqMetaValueSize]byte
	scratch[0] = byte(e.Version)
	binary.BigEndian.PutUint64(scratch[1:9], uint64(maxSeq))
	return append(buf, scratch[:]...)
}

// MaxSeqMetaValueDecoder parses max-sequence meta values.
type MaxSeqMetaValueDecoder struct {
	Version Version
}

func NewMaxSeqMetaValueDecoder() MaxSeqMetaValueDecoder {
	return MaxSeqMetaValueDecoder{Version: CurrentVersion}
}

func (d MaxSeqMetaValueDecoder) DecodeValue(buf []byte) (waltypes.SequenceNumber, error) {
	if len(buf) < MaxSeqMetaValueSize {
		return 0, fmt.Errorf("%w: max-seq meta value needs %d bytes, got %d: %w",
			ErrDecodeMetaValue, MaxSeqMetaValueSize, len(buf), ErrBufferTooShort)
	}
	version := Version(buf[0])
	if version != d.Version {
		return 0, fmt.Errorf("%w: %w", ErrDecodeMetaValue, &InvalidVersion{Expect: d.Version, Given: version})
	}
	return waltypes.SequenceNumber(binary.BigEndian.Uint64(buf[1:9])), nil
}
