package walcodec

import "fmt"

// Namespace discriminates log records from meta records so a single
// ordered KV table can interleave both families and cheaply reject a
// cross-namespace read.
type Namespace uint8

const (
	NamespaceMeta Namespace = 0
	NamespaceLog  Namespace = 1
)

// KeyType further discriminates meta records. Only one meta key type is
// defined today; the byte exists so a second one can be added without
// reshuffling the wire format.
type KeyType uint8

const (
	KeyTypeMaxSequence KeyType = 0
)

// Version is the trailing byte of every encoded key and the leading byte
// of every encoded value. It lets a decoder dispatch on wire-format
// evolution without breaking the lexicographic ordering of keys.
type Version uint8

const CurrentVersion Version = 0

// InvalidNamespace is returned when the leading namespace byte of a key
// does not match what the decoder expected.
type InvalidNamespace struct {
	Expect Namespace
	Given  Namespace
}

func (e *InvalidNamespace) Error() string {
	return fmt.Sprintf("invalid namespace: expect %d, given %d", e.Expect, e.Given)
}

// InvalidMetaKeyType is returned when a meta key's key-type byte does not
// match the decoder's expectation.
type InvalidMetaKeyType struct {
	Expect KeyType
	Given  KeyType
}

func (e *InvalidMetaKeyType) Error() string {
	return fmt.Sprintf("invalid meta key type: expect %d, given %d", e.Expect, e.Given)
}

// InvalidVersion is returned when the version byte of a key or value does
// not match the decoder's expectation.
type InvalidVersion struct {
	Expect Version
	Given  Version
}

func (e *InvalidVersion) Error() string {
	return fmt.Sprintf("invalid version: expect %d, given %d", e.Expect, e.Given)
}

// Sentinel operation-kind errors. Each is wrapped around the specific
// invariant violation (or a short-buffer complaint) with fmt.Errorf so
// callers can both errors.Is against the operation and inspect the
// underlying tagged error with errors.As.
var (
	ErrEncodeLogKey         = fmt.Errorf("encode log key")
	ErrEncodeLogValueHeader = fmt.Errorf("encode log value header")
	ErrEncodeLogValuePayload = fmt.Errorf("encode log value payload")
	ErrEncodeMetaKey        = fmt.Errorf("encode meta key")
	ErrEncodeMetaValue      = fmt.Errorf("encode meta value")

	ErrDecodeLogKey          = fmt.Errorf("decode log key")
	ErrDecodeLogValueHeader  = fmt.Errorf("decode log value header")
	ErrDecodeLogValuePayload = fmt.Errorf("decode log value payload")
	ErrDecodeMetaKey         = fmt.Errorf("decode meta key")
	ErrDecodeMetaValue       = fmt.Errorf("decode meta value")

	ErrBufferTooShort = fmt.Errorf("buffer too short")
)
