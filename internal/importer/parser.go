package importer

// parser.go turns raw spreadsheet text into a RawTable.
//
// The parser is deliberately forgiving: it is the front end of a preview
// tool, not an RFC-4180 validator. Malformed quoting degrades to
// best-effort field splitting instead of an error, and a short row simply
// leaves the trailing headers absent. The trade-off is that a pathological
// file produces odd cell values rather than a parse failure; the row
// validator and preview surface those to the operator.

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ParseCSV parses comma-delimited text into a RawTable.
//
// The first line is the header row; headers are trimmed and
// quote-stripped. Every subsequent non-empty line becomes a Row keyed by
// header using positional alignment. A file with only a header line (or
// nothing at all) yields valid headers and zero rows.
func ParseCSV(text string) RawTable {
	lines := splitLines(text)
	if len(lines) == 0 {
		return RawTable{}
	}

	headers := splitFields(lines[0])
	for i, h := range headers {
		headers[i] = CleanCell(h)
	}

	table := RawTable{Headers: headers}
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitFields(line)
		row := make(Row, len(headers))
		for i, h := range headers {
			if i >= len(fields) {
				break // short row: remaining headers stay absent
			}
			row[h] = fields[i]
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// splitLines splits on \n, tolerating \r\n line endings.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	// Drop a trailing empty line from a final newline.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// splitFields splits one line into fields on commas, honoring double
// quotes well enough for real-world exports. An unterminated quote runs
// to the end of the line rather than failing.
func splitFields(line string) []string {
	var fields []string
	var b strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				b.WriteByte('"') // escaped quote
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(b.String()))
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	fields = append(fields, strings.TrimSpace(b.String()))
	return fields
}

// Byte-order marks recognized by DecodeText.
var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeText converts uploaded file bytes to UTF-8 text, detecting the
// encoding from a BOM and falling back to Windows-1252 for byte content
// that is not valid UTF-8 (the usual case for Excel CSV exports). The
// second return is the detected encoding name. DecodeText never fails;
// undecodable bytes become replacement characters.
func DecodeText(data []byte) (string, string) {
	switch {
	case len(data) == 0:
		return "", "utf-8"
	case bytes.HasPrefix(data, bomUTF8):
		return string(data[3:]), "utf-8-bom"
	case bytes.HasPrefix(data, bomUTF16LE):
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), data[2:]), "utf-16le"
	case bytes.HasPrefix(data, bomUTF16BE):
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), data[2:]), "utf-16be"
	case utf8.Valid(data):
		return string(data), "utf-8"
	default:
		return decodeWith(charmap.Windows1252, data), "windows-1252"
	}
}

func decodeWith(enc encoding.Encoding, data []byte) string {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}
