// Package rfid builds the tag write block of a label
package rfid

import (
	"regexp"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/thereceipt/label-engine/internal/zpl"
)

// Mode is how the payload is written to the tag
type Mode int

const (
	ModeHex Mode = iota
	ModeASCII
)

func (m Mode) String() string {
	if m == ModeHex {
		return "hex"
	}
	return "ascii"
}

var hexPattern = regexp.MustCompile(`^[0-9A-Fa-f]+$`)

// Payload is an encoded tag write
type Payload struct {
	Mode Mode
	Data string
}

// Encode picks hex mode for pure hex digit content, left-padding odd
// lengths with a zero nibble. Anything else is written as ASCII with
// accents removed.
func Encode(content string) Payload {
	if hexPattern.MatchString(content) {
		if len(content)%2 == 1 {
			content = "0" + content
		}
		return Payload{Mode: ModeHex, Data: content}
	}

	return Payload{Mode: ModeASCII, Data: StripAccents(content)}
}

// Write emits the tag setup and write commands
func (p Payload) Write(enc *zpl.Encoder) {
	format := zpl.RFIDASCII
	if p.Mode == ModeHex {
		format = zpl.RFIDHex
	}

	enc.RFIDSetup(zpl.TagGen2)
	enc.RFIDWrite(format, p.Data)
}

// StripAccents decomposes s and drops combining marks ("Ação" -> "Acao")
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
