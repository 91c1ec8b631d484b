package timbre

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// charsetReader permite a etree leer los CAF que el SII entrega en ISO-8859-1.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToUpper(charset) {
	case "ISO-8859-1", "ISO8859-1", "LATIN1", "LATIN-1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	}
	return input, nil
}

// normalizeEncoding convierte a UTF-8 un archivo Latin-1 que no declara su codificación.
func normalizeEncoding(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}
	head := data
	if len(head) > 100 {
		head = head[:100]
	}
	if bytes.Contains(bytes.ToLower(head), []byte("encoding=")) {
		return data, nil
	}
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	return out, err
}

// latin1 codifica el texto firmado en ISO-8859-1; los caracteres sin equivalente se reemplazan.
func latin1(s string) ([]byte, error) {
	enc := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())
	out, _, err := transform.Bytes(enc, []byte(s))
	return out, err
}
