package orders

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestFormatDocNumber(t *testing.T) {
	require.Equal(t, "INV-2024-001", FormatDocNumber("INV", 2024, 1))
	require.Equal(t, "INV-2024-042", FormatDocNumber("INV", 2024, 42))
	require.Equal(t, "INV-2024-999", FormatDocNumber("INV", 2024, 999))
	require.Equal(t, "INV-2024-1000", FormatDocNumber("INV", 2024, 1000))
	require.Equal(t, "BILL-2025-007", FormatDocNumber("BILL", 2025, 7))
}

func TestParseDocNumber(t *testing.T) {
	prefix, year, seq, err := ParseDocNumber("INV-2024-007")
	require.NoError(t, err)
	require.Equal(t, "INV", prefix)
	require.Equal(t, 2024, year)
	require.Equal(t, int64(7), seq)

	_, _, _, err = ParseDocNumber("INV-2024")
	require.Error(t, err)
	_, _, _, err = ParseDocNumber("INV-abc-007")
	require.Error(t, err)
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func TestRedisSequencerStartsAtOne(t *testing.T) {
	client := newTestRedis(t)
	seq := NewRedisSequencer(client, nil)
	ctx := context.Background()

	n, err := seq.Next(ctx, "INV", 2024)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = seq.Next(ctx, "INV", 2024)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	// counters are scoped per prefix and year
	n, err = seq.Next(ctx, "BILL", 2024)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	n, err = seq.Next(ctx, "INV", 2025)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestRedisSequencerSeedsFromHistory(t *testing.T) {
	client := newTestRedis(t)
	last := func(ctx context.Context, prefix string, year int) (string, error) {
		return "INV-2024-007", nil
	}
	seq := NewRedisSequencer(client, last)
	ctx := context.Background()

	n, err := seq.Next(ctx, "INV", 2024)
	require.NoError(t, err)
	require.Equal(t, int64(8), n)
	require.Equal(t, "INV-2024-008", FormatDocNumber("INV", 2024, n))
}

func TestRedisSequencerSeedEmptyHistory(t *testing.T) {
	client := newTestRedis(t)
	last := func(ctx context.Context, prefix string, year int) (string, error) {
		return "", nil
	}
	seq := NewRedisSequencer(client, last)

	n, err := seq.Next(context.Background(), "BILL", 2024)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestRedisSequencerConcurrent(t *testing.T) {
	client := newTestRedis(t)
	seq := NewRedisSequencer(client, nil)
	ctx := context.Background()

	const workers = 20
	results := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := seq.Next(ctx, "INV", 2024)
			require.NoError(t, err)
			results <- n
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool)
	for n := range results {
		require.False(t, seen[n], "sequence %d allocated twice", n)
		seen[n] = true
	}
	require.Len(t, seen, workers)
}
