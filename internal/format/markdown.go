package format

import (
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseResult contains plain text and message entities
type ParseResult struct {
	Text     string
	Entities []tgbotapi.MessageEntity
}

// UTF16Len calculates the UTF-16 length of a string.
// Telegram uses UTF-16 code units for entity offsets and lengths.
func UTF16Len(s string) int {
	length := 0
	for _, r := range s {
		if r >= 0x10000 {
			length += 2
		} else {
			length++
		}
	}
	return length
}

var markers = []struct {
	token  string
	entity string
}{
	{"**", "bold"},
	{"`", "code"},
}

// ParseMarkdown converts **bold** and `code` spans into Telegram message entities.
// Other characters, underscores and single asterisks included, are kept literally
// so user-entered pill names are never reformatted. Unclosed markers stay as text.
func ParseMarkdown(text string) ParseResult {
	var out strings.Builder
	var entities []tgbotapi.MessageEntity
	offset := 0

	for i := 0; i < len(text); {
		matched := false
		for _, m := range markers {
			if !strings.HasPrefix(text[i:], m.token) {
				continue
			}
			rest := text[i+len(m.token):]
			end := strings.Index(rest, m.token)
			if end <= 0 {
				continue
			}
			inner := rest[:end]
			length := UTF16Len(inner)
			entities = append(entities, tgbotapi.MessageEntity{Type: m.entity, Offset: offset, Length: length})
			out.WriteString(inner)
			offset += length
			i += len(m.token)*2 + end
			matched = true
			break
		}
		if matched {
			continue
		}

		r, size := utf8.DecodeRuneInString(text[i:])
		out.WriteRune(r)
		offset += UTF16Len(string(r))
		i += size
	}

	return ParseResult{
		Text:     strings.TrimRight(out.String(), " \n"),
		Entities: entities,
	}
}
