package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hospiq/queue-backend/internal/models"
	"github.com/hospiq/queue-backend/internal/store"
)

func TestFormatToken(t *testing.T) {
	require.Equal(t, "GEN001", FormatToken("GEN", 1))
	require.Equal(t, "GEN012", FormatToken("gen", 12))
	require.Equal(t, "ENT999", FormatToken("ENT", 999))
	// Past the padding width the token widens instead of wrapping.
	require.Equal(t, "GEN1000", FormatToken("GEN", 1000))
}

func TestTokenLess(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"sequential", "GEN001", "GEN002", true},
		{"reversed", "GEN002", "GEN001", false},
		{"equal", "GEN001", "GEN001", false},
		{"beyond padding width", "GEN999", "GEN1000", true},
		{"beyond padding reversed", "GEN1000", "GEN999", false},
		{"no numeric suffix falls back to string order", "ABC", "ABD", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tokenLess(tt.a, tt.b))
		})
	}
}

func TestTokenAllocatorSequence(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	clock := newFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	alloc := NewTokenAllocator(st, clock)

	token, err := alloc.Next(ctx, "GEN")
	require.NoError(t, err)
	require.Equal(t, "GEN001", token)

	_, err = st.InsertEntry(ctx, models.Entry{
		Token:        token,
		Department:   "GEN",
		Status:       models.StatusWaiting,
		RegisteredAt: clock.Now(),
	})
	require.NoError(t, err)

	token, err = alloc.Next(ctx, "GEN")
	require.NoError(t, err)
	require.Equal(t, "GEN002", token)

	// A different department has its own sequence.
	token, err = alloc.Next(ctx, "ENT")
	require.NoError(t, err)
	require.Equal(t, "ENT001", token)

	// Numbering resets at the day boundary.
	clock.Advance(24 * time.Hour)
	token, err = alloc.Next(ctx, "GEN")
	require.NoError(t, err)
	require.Equal(t, "GEN001", token)
}
