package walcodec

import (
	"bytes"
	"fmt"

	"github.com/QuintinTao/ceresdb/internal/waltypes"
)

// LogValueEncoder writes a version byte followed by the payload's own
// bytes. The payload never sees the version byte; it only ever produces
// its own body via Payload.EncodeTo.
type LogValueEncoder struct {
	Version Version
}

func NewLogValueEncoder() LogValueEncoder {
	return LogValueEncoder{Version: CurrentVersion}
}

// EncodeValue reserves 1+payload.EncodeSize() bytes and writes
// version‖payload into buf.
func (e LogValueEncoder) EncodeValue(buf *bytes.Buffer, payload waltypes.Payload) error {
	buf.Grow(1 + payload.EncodeSize())
	if err := buf.WriteByte(byte(e.Version)); err != nil {
		return fmt.Errorf("%w: %w", ErrEncodeLogValueHeader, err)
	}
	if err := payload.EncodeTo(buf); err != nil {
		return fmt.Errorf("%w: %w", ErrEncodeLogValuePayload, err)
	}
	return nil
}

// LogValueDecoder strips and validates the leading version byte.
type LogValueDecoder struct {
	Version Version
}

func NewLogValueDecoder() LogValueDecoder {
	return LogValueDecoder{Version: CurrentVersion}
}

// DecodePayload validates the version byte and returns the remainder of
// buf as a sub-slice — no copy is made here; callers that need the bytes
// to outlive a reused scan buffer must copy them explicitly.
func (d LogValueDecoder) DecodePayload(buf []byte) ([]byte, error) {
	if len(buf) < 1 {
		return nil, fmt.Errorf("%w: %w", ErrDecodeLogValueHeader, ErrBufferTooShort)
	}
	version := Version(buf[0])
	if version != d.Version {
		return nil, fmt.Errorf("%w: %w", ErrDecodeLogValueHeader, &InvalidVersion{Expect: d.Version, Given: version})
	}
	return buf[1:], nil
}
