package walcodec

import (
	"bytes"
	"errors"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/QuintinTao/ceresdb/internal/waltypes"
)

func TestLogKeyRoundTrip(t *testing.T) {
	enc := NewLogEncoding()
	dec := NewLogEncoding()

	region := waltypes.RegionId(1234)
	for _, seq := range []waltypes.SequenceNumber{1000, 1001, 1002, 1003} {
		key := enc.EncodeKey(nil, region, seq)
		assert.Equal(t, len(key), PlainLogKeySize)
		assert.Equal(t, key[0], byte(NamespaceLog))

		gotRegion, gotSeq, err := dec.DecodeKey(key)
		assert.NilError(t, err)
		assert.Equal(t, gotRegion, region)
		assert.Equal(t, gotSeq, seq)
	}
}

func TestLogKeyOrdering(t *testing.T) {
	enc := NewLogEncoding()
	region := waltypes.RegionId(7)

	k1 := enc.EncodeKey(nil, region, 1000)
	k2 := enc.EncodeKey(nil, region, 1001)
	assert.Assert(t, bytes.Compare(k1, k2) < 0)
}

func TestCommonLogKeyOrdering(t *testing.T) {
	enc := NewCommonLogEncoding()
	region := waltypes.RegionId(7)
	table := waltypes.TableId(3)

	k1 := enc.EncodeKey(nil, region, table, 10)
	k2 := enc.EncodeKey(nil, region, table, 11)
	assert.Assert(t, bytes.Compare(k1, k2) < 0)
}

func TestLogKeyVersionRejection(t *testing.T) {
	enc := NewLogEncoding()
	dec := NewLogEncoding()

	key := enc.EncodeKey(nil, 1234, 1000)
	assert.Equal(t, key[PlainLogKeySize-1], byte(0))
	key[PlainLogKeySize-1] = 1

	_, _, err := dec.DecodeKey(key)
	assert.ErrorContains(t, err, "invalid version")

	var invalidVersion *InvalidVersion
	assert.Assert(t, errors.As(err, &invalidVersion))
	assert.Equal(t, invalidVersion.Expect, CurrentVersion)
	assert.Equal(t, invalidVersion.Given, Version(1))
}

func TestLogKeyNamespaceRejection(t *testing.T) {
	metaEnc := NewMetaEncoding()
	logDec := NewLogEncoding()

	metaKey := metaEnc.EncodeKey(nil, 1234)
	_, _, err := logDec.DecodeKey(metaKey)
	assert.ErrorContains(t, err, "invalid namespace")

	var invalidNamespace *InvalidNamespace
	assert.Assert(t, errors.As(err, &invalidNamespace))
	assert.Equal(t, invalidNamespace.Expect, NamespaceLog)
	assert.Equal(t, invalidNamespace.Given, NamespaceMeta)
}

// TestLogKeyScenario2 exercises the literal bytes called out for the
// codec walkthrough: encode (region=1234, seq=1000), expect 18 bytes
// starting with 0x01; flip byte 0 to 0x00 and expect InvalidNamespace;
// restore, flip the trailing byte from 0x00 to 0x01 and expect
// InvalidVersion.
func TestLogKeyScenario2(t *testing.T) {
	enc := NewLogEncoding()
	dec := NewLogEncoding()

	key := enc.EncodeKey(nil, 1234, 1000)
	assert.Equal(t, len(key), 18)
	assert.Equal(t, key[0], byte(0x01))

	original := key[0]
	key[0] = 0x00
	_, _, err := dec.DecodeKey(key)
	var invalidNamespace *InvalidNamespace
	assert.Assert(t, errors.As(err, &invalidNamespace))
	assert.Equal(t, invalidNamespace.Expect, Namespace(1))
	assert.Equal(t, invalidNamespace.Given, Namespace(0))
	key[0] = original

	assert.Equal(t, key[17], byte(0x00))
	key[17] = 0x01
	_, _, err = dec.DecodeKey(key)
	var invalidVersion *InvalidVersion
	assert.Assert(t, errors.As(err, &invalidVersion))
	assert.Equal(t, invalidVersion.Expect, Version(0))
	assert.Equal(t, invalidVersion.Given, Version(1))
}

func TestLogValueRoundTrip(t *testing.T) {
	enc := NewLogEncoding()
	dec := NewLogEncoding()

	payload := waltypes.RawPayload([]byte("time-series-record"))
	var buf bytes.Buffer
	assert.NilError(t, enc.EncodeValue(&buf, payload))

	decoded, err := dec.DecodeValue(buf.Bytes())
	assert.NilError(t, err)
	assert.DeepEqual(t, decoded, []byte(payload))
}

func TestMetaKeyValueRoundTrip(t *testing.T) {
	metaEnc := NewMetaEncoding()

	key := metaEnc.EncodeKey(nil, 99)
	assert.Equal(t, len(key), MetaKeySize)
	gotRegion, err := metaEnc.DecodeKey(key)
	assert.NilError(t, err)
	assert.Equal(t, gotRegion, waltypes.RegionId(99))

	value := metaEnc.EncodeMaxSeq(nil, 42)
	assert.Equal(t, len(value), MaxSeqMetaValueSize)
	gotMaxSeq, err := metaEnc.DecodeMaxSeq(value)
	assert.NilError(t, err)
	assert.Equal(t, gotMaxSeq, waltypes.SequenceNumber(42))
}

func TestIsLogKey(t *testing.T) {
	logEnc := NewLogEncoding()
	metaEnc := NewMetaEncoding()

	assert.Assert(t, IsLogKey(logEnc.EncodeKey(nil, 1, 1)))
	assert.Assert(t, !IsLogKey(metaEnc.EncodeKey(nil, 1)))
	assert.Assert(t, !IsLogKey(nil))
}
