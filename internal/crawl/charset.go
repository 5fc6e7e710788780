package crawl

import (
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding represents a page text encoding
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1251 Encoding = "windows-1251"
)

// DetectEncoding picks the encoding of a fetched page body. The
// Content-Type header wins when it names a charset; otherwise the body
// is sniffed. Russian store pages are either UTF-8 or Windows-1251,
// and Cyrillic Windows-1251 byte runs are almost never valid UTF-8,
// so utf8.Valid is a reliable discriminator.
func DetectEncoding(data []byte, contentType string) Encoding {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "1251") {
		return EncodingWindows1251
	}
	if strings.Contains(ct, "utf-8") || strings.Contains(ct, "utf8") {
		return EncodingUTF8
	}

	// UTF-8 BOM
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return EncodingUTF8
	}

	if utf8.Valid(data) {
		return EncodingUTF8
	}
	return EncodingWindows1251
}

// DecodeBody converts a page body to a UTF-8 string. A body that is
// already valid UTF-8 is returned as-is even when the server declared
// Windows-1251; misdeclared charsets are common on the supported
// stores and double-decoding mangles Cyrillic text.
func DecodeBody(data []byte, enc Encoding) (string, error) {
	if enc == EncodingWindows1251 {
		if utf8.Valid(data) {
			return string(data), nil
		}
		return decodeWindows1251(data)
	}
	return string(data), nil
}

func decodeWindows1251(data []byte) (string, error) {
	reader := transform.NewReader(strings.NewReader(string(data)), charmap.Windows1251.NewDecoder())
	result, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(result), nil
}
