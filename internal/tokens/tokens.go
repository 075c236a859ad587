// Package tokens estimates prompt token counts.
package tokens

import (
	"log/slog"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"promptflow/internal/logging"
)

// Counter returns the number of model tokens in a text.
type Counter interface {
	Count(text string) int
	Name() string
}

// New returns the counter selected by name ("tiktoken" or "heuristic").
// A tiktoken counter whose encoding cannot be loaded degrades to the
// heuristic and logs once.
func New(name, encoding string, logger *slog.Logger) Counter {
	if strings.EqualFold(strings.TrimSpace(name), "heuristic") {
		return Heuristic{}
	}
	if encoding == "" {
		encoding = "cl100k_base"
	}
	return &Tiktoken{encoding: encoding, logger: logging.NewComponentLogger(logger, "tokens")}
}

// Tiktoken counts tokens with a BPE encoding. The encoding is loaded on first
// use.
type Tiktoken struct {
	encoding string
	logger   *slog.Logger

	once     sync.Once
	enc      *tiktoken.Tiktoken
	fallback Heuristic
}

func (t *Tiktoken) Name() string {
	return "tiktoken:" + t.encoding
}

func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	t.once.Do(t.load)
	if t.enc == nil {
		return t.fallback.Count(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

func (t *Tiktoken) load() {
	enc, err := tiktoken.GetEncoding(t.encoding)
	if err != nil {
		logging.WarnWithContext(t.logger, "tiktoken encoding unavailable; using heuristic token counts", "tokenizer_fallback",
			logging.String("encoding", t.encoding),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set optimization.tokenizer = \"heuristic\" for offline use"),
			logging.String(logging.FieldImpact, "estimatedTokens are approximate"),
		)
		return
	}
	t.enc = enc
}

// Heuristic approximates BPE counts without a vocabulary: ASCII words cost one
// token per four bytes, every other letter or symbol costs one token.
type Heuristic struct{}

func (Heuristic) Name() string { return "heuristic" }

func (Heuristic) Count(text string) int {
	count := 0
	word := 0
	flush := func() {
		if word > 0 {
			count += (word + 3) / 4
			word = 0
		}
	}
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		switch {
		case r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			word++
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			count++
		}
	}
	flush()
	return count
}

// Sum counts every text and returns the total.
func Sum(c Counter, texts ...string) int {
	total := 0
	for _, text := range texts {
		total += c.Count(text)
	}
	return total
}
