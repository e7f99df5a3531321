package capi

import (
	"encoding/binary"
	"unicode/utf8"
)

// AttachmentItem is one key/value pair of a put attachment.
type AttachmentItem struct {
	Key   []byte
	Value []byte
}

// EncodeAttachment frames items as length-prefixed key/value pairs:
// u32le(keyLen) key u32le(valLen) val, repeated. Items with a nil or
// invalid-UTF-8 key are skipped. An empty result encodes as nil.
func EncodeAttachment(items []AttachmentItem) []byte {
	var out []byte
	var lenBuf [4]byte
	for _, item := range items {
		if item.Key == nil || !utf8.Valid(item.Key) {
			continue
		}
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(item.Key)))
		out = append(out, lenBuf[:]...)
		out = append(out, item.Key...)
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(item.Value)))
		out = append(out, lenBuf[:]...)
		out = append(out, item.Value...)
	}
	return out
}

// DecodeAttachment parses a framed attachment back into its pairs.
// Truncated trailing data is dropped; decoding never fails.
func DecodeAttachment(data []byte) []AttachmentItem {
	var items []AttachmentItem
	for len(data) >= 4 {
		keyLen := binary.LittleEndian.Uint32(data[:4])
		data = data[4:]
		if uint32(len(data)) < keyLen {
			break
		}
		key := data[:keyLen]
		data = data[keyLen:]
		if len(data) < 4 {
			break
		}
		valLen := binary.LittleEndian.Uint32(data[:4])
		data = data[4:]
		if uint32(len(data)) < valLen {
			break
		}
		items = append(items, AttachmentItem{Key: key, Value: data[:valLen]})
		data = data[valLen:]
	}
	return items
}
