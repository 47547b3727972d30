package importer

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Candidate charmaps tried after UTF-8. Windows-1252 has undefined byte
// positions, so a decode producing replacement runes means the guess was
// wrong; ISO-8859-1 maps every byte and closes the chain.
var fallbackCharmaps = []*charmap.Charmap{
	charmap.Windows1252,
	charmap.ISO8859_1,
}

// DecodeBytes converts a raw upload into a UTF-8 string. Site spreadsheets
// arrive in whatever encoding the exporting machine used, so the decoder is
// guessed rather than declared.
func DecodeBytes(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	for i, cm := range fallbackCharmaps {
		decoded, err := cm.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		text := string(decoded)
		if i == len(fallbackCharmaps)-1 || !strings.ContainsRune(text, utf8.RuneError) {
			return text
		}
	}
	return string(data)
}
