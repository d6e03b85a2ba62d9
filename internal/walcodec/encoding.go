package walcodec

import (
	"bytes"

	"github.com/QuintinTao/ceresdb/internal/waltypes"
)

// LogEncoding bundles the plain-log-key encoder/decoder with the shared
// log-value encoder/decoder, mirroring the single object callers reach
// for when a region's log holds one logical table per key.
type LogEncoding struct {
	keyEnc   LogKeyEncoder
	keyDec   LogKeyDecoder
	valueEnc LogValueEncoder
	valueDec LogValueDecoder
}

func NewLogEncoding() LogEncoding {
	return LogEncoding{
		keyEnc:   NewLogKeyEncoder(),
		keyDec:   NewLogKeyDecoder(),
		valueEnc: NewLogValueEncoder(),
		valueDec: NewLogValueDecoder(),
	}
}

func (e LogEncoding) EncodeKey(buf []byte, regionID waltypes.RegionId, seq waltypes.SequenceNumber) []byte {
	return e.keyEnc.EncodeKey(buf, regionID, seq)
}

func (e LogEncoding) DecodeKey(buf []byte) (waltypes.RegionId, waltypes.SequenceNumber, error) {
	return e.keyDec.DecodeKey(buf)
}

func (e LogEncoding) MinKey(regionID waltypes.RegionId) []byte {
	return e.keyEnc.MinKey(regionID)
}

func (e LogEncoding) MaxKey(regionID waltypes.RegionId, seq waltypes.SequenceNumber) []byte {
	return e.keyEnc.MaxKey(regionID, seq)
}

func (e LogEncoding) EncodeValue(buf *bytes.Buffer, payload waltypes.Payload) error {
	return e.valueEnc.EncodeValue(buf, payload)
}

func (e LogEncoding) DecodeValue(buf []byte) ([]byte, error) {
	return e.valueDec.DecodePayload(buf)
}

func (e LogEncoding) IsLogKey(buf []byte) bool { return IsLogKey(buf) }

// CommonLogEncoding is LogEncoding's table_id-bearing counterpart, used
// when a region's log is shared by several tables.
type CommonLogEncoding struct {
	keyEnc   CommonLogKeyEncoder
	keyDec   CommonLogKeyDecoder
	valueEnc LogValueEncoder
	valueDec LogValueDecoder
}

func NewCommonLogEncoding() CommonLogEncoding {
	return CommonLogEncoding{
		keyEnc:   NewCommonLogKeyEncoder(),
		keyDec:   NewCommonLogKeyDecoder(),
		valueEnc: NewLogValueEncoder(),
		valueDec: NewLogValueDecoder(),
	}
}

func (e CommonLogEncoding) EncodeKey(buf []byte, regionID waltypes.RegionId, tableID waltypes.TableId, seq waltypes.SequenceNumber) []byte {
	return e.keyEnc.EncodeKey(buf, regionID, tableID, seq)
}

func (e CommonLogEncoding) DecodeKey(buf []byte) (waltypes.RegionId, waltypes.TableId, waltypes.SequenceNumber, error) {
	return e.keyDec.DecodeKey(buf)
}

func (e CommonLogEncoding) MinKey(regionID waltypes.RegionId, tableID waltypes.TableId) []byte {
	return e.keyEnc.MinKey(regionID, tableID)
}

func (e CommonLogEncoding) MaxKey(regionID waltypes.RegionId, tableID waltypes.TableId, seq waltypes.SequenceNumber) []byte {
	return e.keyEnc.MaxKey(regionID, tableID, seq)
}

func (e CommonLogEncoding) EncodeValue(buf *bytes.Buffer, payload waltypes.Payload) error {
	return e.valueEnc.EncodeValue(buf, payload)
}

func (e CommonLogEncoding) DecodeValue(buf []byte) ([]byte, error) {
	return e.valueDec.DecodePayload(buf)
}

func (e CommonLogEncoding) IsValid(buf []byte) bool { return IsLogKey(buf) }

// MetaEncoding bundles the max-sequence meta key/value codecs.
type MetaEncoding struct {
	keyEnc   MetaKeyEncoder
	keyDec   MetaKeyDecoder
	valueEnc MaxSeqMetaValueEncoder
	valueDec MaxSeqMetaValueDecoder
}

func NewMetaEncoding() MetaEncoding {
	return MetaEncoding{
		keyEnc:   NewMetaKeyEncoder(),
		keyDec:   NewMetaKeyDecoder(),
		valueEnc: NewMaxSeqMetaValueEncoder(),
		valueDec: NewMaxSeqMetaValueDecoder(),
	}
}

func (e MetaEncoding) EncodeKey(buf []byte, regionID waltypes.RegionId) []byte {
	return e.keyEnc.EncodeKey(buf, regionID)
}

func (e MetaEncoding) DecodeKey(buf []byte) (waltypes.RegionId, error) {
	return e.keyDec.DecodeKey(buf)
}

func (e MetaEncoding) EncodeMaxSeq(buf []byte, maxSeq waltypes.SequenceNumber) []byte {
	return e.valueEnc.EncodeValue(buf, maxSeq)
}

func (e MetaEncoding) DecodeMaxSeq(buf []byte) (waltypes.SequenceNumber, error) {
	return e.valueDec.DecodeValue(buf)
}
