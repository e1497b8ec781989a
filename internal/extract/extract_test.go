package extract

import (
	"testing"

	"hookrelay/internal/platform"
)

func TestExtractInstagram(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		fields Fields
		author string
		body   string
	}{
		{
			name:   "english posted",
			fields: Fields{Title: "Instagram", BigText: "alice posted a new photo"},
			author: "alice",
			body:   "a new photo",
		},
		{
			name:   "chinese posted",
			fields: Fields{BigText: "alice 張貼了相片。"},
			author: "alice",
			body:   "相片。",
		},
		{
			name:   "chinese live",
			fields: Fields{Text: "some.user 的直播視訊開始了"},
			author: "some.user",
			body:   "",
		},
		{
			name:   "boilerplate word is not an author",
			fields: Fields{Title: "Instagram", Text: "new update available"},
			author: "",
			body:   "new update available",
		},
		{
			name:   "author from title when body has none",
			fields: Fields{Title: "photos_by.jane", Text: "new story available"},
			author: "photos_by.jane",
			body:   "new story available",
		},
		{
			name:   "distinct subtext appended",
			fields: Fields{BigText: "dave posted a photo", SubText: "2 minutes ago"},
			author: "dave",
			body:   "a photo\n2 minutes ago",
		},
		{
			name:   "subtext equal to text is not duplicated",
			fields: Fields{Text: "alice posted a photo", SubText: "alice posted a photo"},
			author: "alice",
			body:   "a photo",
		},
		{
			name:   "empty input",
			fields: Fields{},
			author: "",
			body:   "",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(platform.Instagram, tt.fields)
			if got.Author != tt.author {
				t.Fatalf("Author = %q, want %q", got.Author, tt.author)
			}
			if got.Body != tt.body {
				t.Fatalf("Body = %q, want %q", got.Body, tt.body)
			}
		})
	}
}

func TestExtractTwitter(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		fields Fields
		author string
		body   string
	}{
		{
			name:   "handle with colon",
			fields: Fields{Title: "Twitter", Text: "@bob: check this out"},
			author: "bob",
			body:   "check this out",
		},
		{
			name:   "chinese posted in title",
			fields: Fields{Title: "@carol 發布了", Text: "今天天氣真好"},
			author: "carol",
			body:   "今天天氣真好",
		},
		{
			name:   "handle mid sentence",
			fields: Fields{Title: "New tweet", Text: "see the thread from @dave_99 today"},
			author: "dave_99",
			body:   "see the thread from @dave_99 today",
		},
		{
			name:   "single character handle rejected",
			fields: Fields{Text: "@a: hi"},
			author: "",
			body:   "@a: hi",
		},
		{
			name:   "leading handle in body",
			fields: Fields{BigText: "@erin just setting up"},
			author: "erin",
			body:   "just setting up",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(platform.Twitter, tt.fields)
			if got.Author != tt.author {
				t.Fatalf("Author = %q, want %q", got.Author, tt.author)
			}
			if got.Body != tt.body {
				t.Fatalf("Body = %q, want %q", got.Body, tt.body)
			}
		})
	}
}

func TestExtractUnknownPlatform(t *testing.T) {
	t.Parallel()
	got := Extract(platform.Platform("OTHER"), Fields{Text: "plain text", BigText: ""})
	if got.Author != "" {
		t.Fatalf("Author = %q, want empty", got.Author)
	}
	if got.Body != "plain text" {
		t.Fatalf("Body = %q, want %q", got.Body, "plain text")
	}
}
