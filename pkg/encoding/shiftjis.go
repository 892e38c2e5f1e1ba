// Package encoding provides text encoding utilities for VF3 descriptor files.
package encoding

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// ShiftJISToUTF8 converts Shift-JIS encoded bytes to a UTF-8 string.
// Returns the original bytes as a string if conversion fails.
func ShiftJISToUTF8(data []byte) string {
	decoder := japanese.ShiftJIS.NewDecoder()
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// DecodeText returns descriptor text as UTF-8.
// Valid UTF-8 input is passed through; anything else is treated as Shift-JIS.
// A leading UTF-8 byte order mark and carriage returns are stripped.
func DecodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	var text string
	if utf8.Valid(data) {
		text = string(data)
	} else {
		text = ShiftJISToUTF8(data)
	}
	return string(bytes.ReplaceAll([]byte(text), []byte("\r"), nil))
}
