// Package langdetect guesses the language of a chat message from the Unicode
// blocks it contains. It never calls out and never fails.
package langdetect

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type Code string

const (
	English   Code = "en"
	Hindi     Code = "hi"
	Marathi   Code = "mr"
	Kannada   Code = "kn"
	Tamil     Code = "ta"
	Telugu    Code = "te"
	Malayalam Code = "ml"
	Bengali   Code = "bn"
	Gujarati  Code = "gu"
	Punjabi   Code = "pa"
)

// block is a Unicode block, inclusive on both ends.
type block struct {
	code   Code
	lo, hi rune
}

// Check order matters: the first block present in the text wins. Marathi
// shares the Devanagari block with Hindi and is listed after it, so it is
// never returned.
var blocks = []block{
	{Hindi, 0x0900, 0x097F},
	{Marathi, 0x0900, 0x097F},
	{Kannada, 0x0C80, 0x0CFF},
	{Tamil, 0x0B80, 0x0BFF},
	{Telugu, 0x0C00, 0x0C7F},
	{Malayalam, 0x0D00, 0x0D7F},
	{Bengali, 0x0980, 0x09FF},
	{Gujarati, 0x0A80, 0x0AFF},
	{Punjabi, 0x0A00, 0x0A7F},
}

// Detect returns the language of text, or English when no known block is
// present.
func Detect(text string) Code {
	present := make([]bool, len(blocks))
	for _, r := range text {
		if r < 0x0900 || r > 0x0D7F {
			continue
		}
		for i, b := range blocks {
			if r >= b.lo && r <= b.hi {
				present[i] = true
			}
		}
	}
	for i, b := range blocks {
		if present[i] {
			return b.code
		}
	}
	return English
}

var names = map[Code]string{
	English:   "English",
	Hindi:     "Hindi",
	Marathi:   "Marathi",
	Kannada:   "Kannada",
	Tamil:     "Tamil",
	Telugu:    "Telugu",
	Malayalam: "Malayalam",
	Bengali:   "Bengali",
	Gujarati:  "Gujarati",
	Punjabi:   "Punjabi",
}

var namer = display.English.Languages()

// Name returns the English display name of code, e.g. "Bengali". Codes
// outside the detected set are resolved through CLDR; unparseable codes are
// returned as-is.
func Name(code Code) string {
	if n, ok := names[code]; ok {
		return n
	}
	tag, err := language.Parse(string(code))
	if err != nil {
		return string(code)
	}
	if n := namer.Name(tag); n != "" {
		return n
	}
	return string(code)
}
