package chunk

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kailas-cloud/healthrag/internal/domain"
	"github.com/kailas-cloud/healthrag/internal/domain/corpus"
)

func words(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%d", i)
	}
	return out
}

func TestWindow_Defaults(t *testing.T) {
	text := strings.Join(words(600), " ")

	got, err := Window(text, DefaultSize, DefaultOverlap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// starts: 0, 250, 500
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	if n := len(strings.Fields(got[0])); n != 300 {
		t.Errorf("first chunk: expected 300 words, got %d", n)
	}
	if !strings.HasPrefix(got[1], "w250 ") {
		t.Errorf("second chunk should start at w250, got %q", got[1][:10])
	}
	if n := len(strings.Fields(got[2])); n != 100 {
		t.Errorf("last chunk: expected 100 words, got %d", n)
	}
}

func TestWindow_ShortText(t *testing.T) {
	got, err := Window("Hypertension is a condition", 300, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "Hypertension is a condition" {
		t.Errorf("unexpected chunks: %q", got)
	}
}

func TestWindow_EmptyText(t *testing.T) {
	for _, text := range []string{"", "   \n\t "} {
		got, err := Window(text, 10, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no chunks for %q, got %d", text, len(got))
		}
	}
}

func TestWindow_CollapsesWhitespace(t *testing.T) {
	got, err := Window("a\n\nb\t c", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != "a b c" {
		t.Errorf("got %q", got[0])
	}
}

func TestWindow_InvalidParams(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"overlap equals size", 10, 10},
		{"overlap greater than size", 10, 11},
		{"zero size", 0, 0},
		{"negative overlap", 10, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Window("some text here", tt.size, tt.overlap)
			if !errors.Is(err, domain.ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}

// Windows re-joined on their overlaps reproduce the original word sequence.
func TestWindow_RoundTrip(t *testing.T) {
	params := []struct{ size, overlap, n int }{
		{300, 50, 1000},
		{5, 4, 23},
		{7, 0, 21},
		{3, 1, 2},
		{10, 3, 10},
		{10, 3, 11},
	}

	for _, p := range params {
		t.Run(fmt.Sprintf("size=%d/overlap=%d/n=%d", p.size, p.overlap, p.n), func(t *testing.T) {
			src := words(p.n)
			got, err := Window(strings.Join(src, " "), p.size, p.overlap)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) == 0 {
				t.Fatal("expected at least one chunk")
			}

			var rebuilt []string
			for i, c := range got {
				w := strings.Fields(c)
				if len(w) > p.size {
					t.Fatalf("chunk %d has %d words, limit %d", i, len(w), p.size)
				}
				if i == 0 {
					rebuilt = append(rebuilt, w...)
					continue
				}
				// Drop the words already emitted by the previous window.
				already := len(rebuilt) - i*(p.size-p.overlap)
				if already < len(w) {
					rebuilt = append(rebuilt, w[already:]...)
				}
			}

			if strings.Join(rebuilt, " ") != strings.Join(src, " ") {
				t.Errorf("round trip mismatch:\ngot:  %v\nwant: %v", rebuilt, src)
			}
		})
	}
}

func TestSplit_TagsProvenance(t *testing.T) {
	year := 2023
	doc := corpus.Document{
		Title: "WHO Fact Sheet - Hypertension",
		URL:   "https://www.who.int/news-room/fact-sheets/detail/hypertension",
		Year:  &year,
		Text:  strings.Join(words(25), " "),
	}

	chunks, err := Split(doc, 10, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// starts: 0, 8, 16, 24
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.ID != i {
			t.Errorf("chunk %d: expected ID %d, got %d", i, i, c.ID)
		}
		if c.DocTitle != doc.Title || c.DocURL != doc.URL {
			t.Errorf("chunk %d: provenance not copied: %+v", i, c)
		}
		if c.DocYear == nil || *c.DocYear != 2023 {
			t.Errorf("chunk %d: expected year 2023, got %v", i, c.DocYear)
		}
	}
}

func TestSplit_PropagatesConfigError(t *testing.T) {
	_, err := Split(corpus.Document{Title: "x", Text: "a b c"}, 5, 5)
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
