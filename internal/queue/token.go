package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hospiq/queue-backend/internal/store"
)

// tokenWidth is the zero-padded width of the numeric suffix. Tokens stay
// unique past 999 entries per department-day; only their string sort order
// degrades, which is why position comparison parses the suffix numerically.
const tokenWidth = 3

// TokenAllocator issues per-(department, day) sequential tokens. The
// sequence is derived from the live entry count rather than a stored
// counter, so it self-heals after a restart but is only race-free while the
// engine serializes allocation with entry insertion.
type TokenAllocator struct {
	store store.Store
	clock Clock
}

func NewTokenAllocator(st store.Store, clock Clock) *TokenAllocator {
	return &TokenAllocator{store: st, clock: clock}
}

// Next returns the next token for the department today. Numbering resets at
// the day boundary implicitly because the count is day-scoped.
func (a *TokenAllocator) Next(ctx context.Context, department string) (string, error) {
	dayStart, dayEnd := DayWindow(a.clock.Now())
	n, err := a.store.CountEntries(ctx, department, dayStart, dayEnd)
	if err != nil {
		return "", fmt.Errorf("count entries for token: %w", err)
	}
	return FormatToken(department, n+1), nil
}

func FormatToken(department string, seq int) string {
	return fmt.Sprintf("%s%0*d", strings.ToUpper(department), tokenWidth, seq)
}

// tokenSeq extracts the numeric suffix of a token.
func tokenSeq(token string) (int, bool) {
	i := len(token)
	for i > 0 && token[i-1] >= '0' && token[i-1] <= '9' {
		i--
	}
	if i == len(token) {
		return 0, false
	}
	n, err := strconv.Atoi(token[i:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// tokenLess orders two tokens of the same department. It compares the parsed
// numeric suffix so ordering stays correct once the sequence outgrows the
// padding width, and falls back to plain string comparison for tokens
// without one.
func tokenLess(a, b string) bool {
	as, aok := tokenSeq(a)
	bs, bok := tokenSeq(b)
	if aok && bok && as != bs {
		return as < bs
	}
	return a < b
}
