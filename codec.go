package serialhunter

import (
	"fmt"
	"strconv"
	"strings"
)

// The pretty codec turns a byte stream that is "probably" ASCII into a
// human-readable unicode rendering that makes whitespace and control bytes
// visible. NULL shows as "␀", space as "·", and any byte with no printable
// rendering as a hex escape like "˟F8". Glyphs follow the Cozette character
// map so the output lines up in a terminal.
//
// Newlines render as their control pictures followed by a real '\n' so the
// stream still wraps; on the encode side any run of CR, LF, or their glyphs
// collapses to a single LF. For plain printable ASCII, EncodePretty is the
// inverse of DecodePretty except for line terminators, which always
// normalize to '\n'.

const (
	// EscapeRune prefixes a two-digit hex escape for unprintable bytes
	EscapeRune = '˟'
	// ContinuationRune marks a soft line break; it and the following rune
	// are dropped during encoding
	ContinuationRune = '↲'
	// tabRune decorates an encoded tab and carries no value of its own
	tabRune = '→'
)

// controlGlyphs maps bytes to their display renderings where the default
// (literal ASCII or hex escape) is not wanted
var controlGlyphs = map[byte]string{
	0x00: "␀",
	0x08: "␈",
	0x09: "\t→",
	0x0A: "␊",
	0x0B: "␋",
	0x0C: "␌",
	0x0D: "␍",
	0x0E: "␎",
	0x0F: "␏",
	0x1C: "␜",
	0x1D: "␝",
	0x1E: "␞",
	0x1F: "␟",
	0x20: "·",
	0x7F: "␡",
}

// byteToChars is the full decode table, one rendering per byte value
var byteToChars = buildDecodeTable()

// charToByte is the reverse mapping for every single-rune rendering,
// plus the plain ASCII identities so unprettified input also encodes
var charToByte = buildEncodeTable()

func buildDecodeTable() [256]string {
	var table [256]string
	for n := 0; n < 256; n++ {
		switch {
		case n >= 0x21 && n <= 0x7E:
			table[n] = string(rune(n))
		default:
			// Control bytes and the high half get hex escapes
			table[n] = fmt.Sprintf("%c%02X", EscapeRune, n)
		}
	}
	for b, glyph := range controlGlyphs {
		table[b] = glyph
	}
	return table
}

func buildEncodeTable() map[rune]byte {
	table := make(map[rune]byte, 256)
	// Glyph renderings first, ASCII identities second so that a literal
	// ASCII character always wins over a glyph that happens to collide
	for b, glyph := range controlGlyphs {
		runes := []rune(glyph)
		if len(runes) == 1 {
			table[runes[0]] = b
		}
	}
	for n := 0; n < 128; n++ {
		table[rune(n)] = byte(n)
	}
	return table
}

// isNewlineByte reports whether a byte is a CR or LF
func isNewlineByte(b byte) bool {
	return b == '\n' || b == '\r'
}

// DecodePretty renders raw serial bytes as readable unicode text.
// Decoding is total: every byte value has a rendering.
func DecodePretty(data []byte) string {
	var d PrettyDecoder
	return d.Decode(data)
}

// PrettyDecoder is a stateful decoder for chunked streams. Newline state is
// carried across calls so a CR/LF pair split between two reads still
// produces a single line break.
type PrettyDecoder struct {
	wasNewline bool
}

// Decode renders the next chunk of the stream
func (d *PrettyDecoder) Decode(data []byte) string {
	var out strings.Builder
	out.Grow(len(data))

	for _, b := range data {
		isNewline := isNewlineByte(b)
		if !isNewline && d.wasNewline {
			out.WriteByte('\n')
		}
		d.wasNewline = isNewline

		out.WriteString(byteToChars[b])
	}

	return out.String()
}

// Reset clears carried newline state
func (d *PrettyDecoder) Reset() {
	d.wasNewline = false
}

// EncodeError reports a position in the input string that could not be
// converted back into bytes.
type EncodeError struct {
	Input  string
	Start  int // rune offset of the offending sequence
	End    int
	Reason string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("cannot encode pretty text at rune %d-%d: %s", e.Start, e.End, e.Reason)
}

// EncodePretty converts prettified (or plain) text back into raw bytes.
//
// Hex escapes like "˟F8" become single bytes. Runs of CR, LF, "␍", and "␊"
// collapse to one LF. The continuation rune and its follower are dropped,
// as is the tab decoration arrow. Encoding is strict: a malformed escape or
// a rune with no byte mapping returns an *EncodeError with its position.
func EncodePretty(data string) ([]byte, error) {
	runes := []rune(data)
	out := make([]byte, 0, len(runes))

	skipNext := false
	inNewlineRun := false
	escapeStart := -1
	var escapeBuf []rune

	for i, c := range runes {
		if skipNext {
			skipNext = false
			continue
		}

		// Inside a hex escape: collect exactly two digits
		if escapeStart >= 0 {
			if c == EscapeRune {
				return nil, &EncodeError{
					Input:  data,
					Start:  escapeStart,
					End:    i + 1,
					Reason: fmt.Sprintf("escape character inside escape sequence %q", string(escapeBuf)),
				}
			}
			escapeBuf = append(escapeBuf, c)
			if len(escapeBuf) == 2 {
				v, err := strconv.ParseUint(string(escapeBuf), 16, 8)
				if err != nil {
					return nil, &EncodeError{
						Input:  data,
						Start:  escapeStart,
						End:    i + 1,
						Reason: fmt.Sprintf("invalid hex digits %q", string(escapeBuf)),
					}
				}
				out = append(out, byte(v))
				escapeStart = -1
				escapeBuf = escapeBuf[:0]
			}
			continue
		}

		if c == ContinuationRune {
			skipNext = true
			continue
		}

		if c == '\r' || c == '\n' || c == '␍' || c == '␊' {
			if !inNewlineRun {
				out = append(out, '\n')
				inNewlineRun = true
			}
			continue
		}
		inNewlineRun = false

		if c == EscapeRune {
			escapeStart = i
			continue
		}

		if c == tabRune {
			continue
		}

		b, ok := charToByte[c]
		if !ok {
			return nil, &EncodeError{
				Input:  data,
				Start:  i,
				End:    i + 1,
				Reason: fmt.Sprintf("no byte mapping for %q", c),
			}
		}
		out = append(out, b)
	}

	if escapeStart >= 0 {
		return nil, &EncodeError{
			Input:  data,
			Start:  escapeStart,
			End:    len(runes),
			Reason: "truncated escape sequence",
		}
	}

	return out, nil
}
