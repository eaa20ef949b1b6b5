package capability

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

// Truncator bounds text to a token budget before it is sent to a provider.
// When the encoding cannot be loaded it falls back to a rune budget of
// four runes per token.
type Truncator struct {
	maxTokens int

	once sync.Once
	enc  *tiktoken.Tiktoken
}

func NewTruncator(maxTokens int) *Truncator {
	return &Truncator{maxTokens: maxTokens}
}

func (t *Truncator) encoding() *tiktoken.Tiktoken {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(encodingName)
		if err == nil {
			t.enc = enc
		}
	})
	return t.enc
}

// Truncate returns s unchanged when it fits, otherwise its longest prefix
// within the budget.
func (t *Truncator) Truncate(s string) string {
	if t == nil || t.maxTokens <= 0 || s == "" {
		return s
	}
	if enc := t.encoding(); enc != nil {
		tokens := enc.Encode(s, nil, nil)
		if len(tokens) <= t.maxTokens {
			return s
		}
		return enc.Decode(tokens[:t.maxTokens])
	}
	return truncateRunes(s, t.maxTokens*4)
}

// Fit drops the oldest entries until the joined items fit the budget.
func (t *Truncator) Fit(items []string) []string {
	if t == nil || t.maxTokens <= 0 {
		return items
	}
	total := 0
	start := len(items)
	for start > 0 {
		n := t.count(items[start-1])
		if total+n > t.maxTokens {
			break
		}
		total += n
		start--
	}
	if start == len(items) && len(items) > 0 {
		// a single oversized entry is kept, truncated
		return []string{t.Truncate(items[len(items)-1])}
	}
	return items[start:]
}

func (t *Truncator) count(s string) int {
	if enc := t.encoding(); enc != nil {
		return len(enc.Encode(s, nil, nil))
	}
	return (utf8.RuneCountInString(s) + 3) / 4
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
