package walcodec

import (
	"encoding/binary"
	"fmt"

	"github.com/QuintinTao/ceresdb/internal/waltypes"
)

// MetaKeySize is the fixed width of a max-sequence meta key:
// namespace(1) ‖ key_type(1) ‖ region_id(8) ‖ version(1).
const MetaKeySize = 1 + 1 + 8 + 1

// MetaKeyEncoder produces max-sequence meta keys.
type MetaKeyEncoder struct {
	Version Version
}

func NewMetaKeyEncoder() MetaKeyEncoder {
	return MetaKeyEncoder{Version: CurrentVersion}
}

func (e MetaKeyEncoder) EncodeKey(buf []byte, regionID waltypes.RegionId) []byte {
	var scratch [MetaKeySize]byte
	scratch[0] = byte(NamespaceMeta)
	scratch[1] = byte(KeyTypeMaxSequence)
	binary.BigEndian.PutUint64(scratch[2:10], uint64(regionID))
	scratch[10] = byte(e.Version)
	return append(buf, scratch[:]...)
}

// MetaKeyDecoder parses max-sequence meta keys, validating namespace,
// key-type, and version.
type MetaKeyDecoder struct {
	Version Version
}

func NewMetaKeyDecoder() MetaKeyDecoder {
	return MetaKeyDecoder{Version: CurrentVersion}
}

func (d MetaKeyDecoder) DecodeKey(buf []byte) (waltypes.RegionId, error) {
	if len(buf) < MetaKeySize {
		return 0, fmt.Errorf("%w: meta key needs %d bytes, got %d: %w",
			ErrDecodeMetaKey, MetaKeySize, len(buf), ErrBufferTooShort)
	}
	ns := Namespace(buf[0])
	if ns != NamespaceMeta {
		return 0, fmt.Errorf("%w: %w", ErrDecodeMetaKey, &InvalidNamespace{Expect: NamespaceMeta, Given: ns})
	}
	kt := KeyType(buf[1])
	if kt != KeyTypeMaxSequence {
		return 0, fmt.Errorf("%w: %w", ErrDecodeMetaKey, &InvalidMetaKeyType{Expect: KeyTypeMaxSequence, Given: kt})
	}
	version := Version(buf[MetaKeySize-1])
	if version != d.Version {
		return 0, fmt.Errorf("%w: %w", ErrDecodeMetaKey, &InvalidVersion{Expect: d.Version, Given: version})
	}
	regionID := waltypes.RegionId(binary.BigEndian.Uint64(buf[2:10]))
	return regionID, nil
}
