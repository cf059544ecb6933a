package format

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestUTF16Len(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"abc", 3},
		{"아침", 2},
		{"💊", 2},
		{"💊 아침", 5},
	}
	for _, tt := range tests {
		if got := UTF16Len(tt.in); got != tt.want {
			t.Errorf("UTF16Len(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		text     string
		entities []tgbotapi.MessageEntity
	}{
		{
			name: "plain",
			in:   "vitamin_c *daily*",
			text: "vitamin_c *daily*",
		},
		{
			name:     "bold after emoji",
			in:       "💊 **아침** 약",
			text:     "💊 아침 약",
			entities: []tgbotapi.MessageEntity{{Type: "bold", Offset: 3, Length: 2}},
		},
		{
			name: "bold and code",
			in:   "`/take 1 morning` then **done**\n",
			text: "/take 1 morning then done",
			entities: []tgbotapi.MessageEntity{
				{Type: "code", Offset: 0, Length: 15},
				{Type: "bold", Offset: 21, Length: 4},
			},
		},
		{
			name: "unclosed",
			in:   "**open",
			text: "**open",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMarkdown(tt.in)
			if got.Text != tt.text {
				t.Errorf("text = %q, want %q", got.Text, tt.text)
			}
			if len(got.Entities) != len(tt.entities) {
				t.Fatalf("entities = %+v, want %+v", got.Entities, tt.entities)
			}
			for i := range tt.entities {
				e := got.Entities[i]
				if e.Type != tt.entities[i].Type || e.Offset != tt.entities[i].Offset || e.Length != tt.entities[i].Length {
					t.Errorf("entity %d = %+v, want %+v", i, e, tt.entities[i])
				}
			}
		})
	}
}
