package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// FormatDocNumber renders the external document number contract:
// PREFIX-year-sequence, the sequence zero padded to three digits and
// unpadded from 1000 on.
func FormatDocNumber(prefix string, year int, seq int64) string {
	if seq < 1000 {
		return fmt.Sprintf("%s-%d-%03d", prefix, year, seq)
	}
	return fmt.Sprintf("%s-%d-%d", prefix, year, seq)
}

// ParseDocNumber extracts prefix, year and sequence from a document number.
func ParseDocNumber(doc string) (prefix string, year int, seq int64, err error) {
	parts := strings.Split(doc, "-")
	if len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("orders: malformed document number %q", doc)
	}
	year, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, fmt.Errorf("orders: malformed year in %q", doc)
	}
	seq, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("orders: malformed sequence in %q", doc)
	}
	return parts[0], year, seq, nil
}

// LastDocNumberFunc reports the most recent document number for a prefix and
// year, or empty when history has none. Used to seed the counter so numbering
// continues where an existing history left off.
type LastDocNumberFunc func(ctx context.Context, prefix string, year int) (string, error)

// RedisSequencer allocates document sequences with an atomic per-prefix,
// per-year counter. Concurrent finalizes observe strictly increasing values,
// which the parse-the-last-record approach could not guarantee.
type RedisSequencer struct {
	client *redis.Client
	last   LastDocNumberFunc
}

// NewRedisSequencer builds a sequencer. last may be nil when there is no
// pre-existing history to continue from.
func NewRedisSequencer(client *redis.Client, last LastDocNumberFunc) *RedisSequencer {
	return &RedisSequencer{client: client, last: last}
}

func sequenceKey(prefix string, year int) string {
	return fmt.Sprintf("orders:seq:%s:%d", prefix, year)
}

// Next returns the next sequence for the prefix and year, starting at 1 for
// an empty history.
func (s *RedisSequencer) Next(ctx context.Context, prefix string, year int) (int64, error) {
	key := sequenceKey(prefix, year)

	if s.last != nil {
		if err := s.seed(ctx, key, prefix, year); err != nil {
			return 0, err
		}
	}

	seq, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("orders: incr %s: %w", key, err)
	}
	return seq, nil
}

// seed initialises the counter from the last persisted document number when
// the key does not exist yet. SETNX keeps concurrent seeders from clobbering
// an already running counter.
func (s *RedisSequencer) seed(ctx context.Context, key, prefix string, year int) error {
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("orders: exists %s: %w", key, err)
	}
	if exists > 0 {
		return nil
	}
	doc, err := s.last(ctx, prefix, year)
	if err != nil {
		return fmt.Errorf("orders: last document: %w", err)
	}
	if doc == "" {
		return nil
	}
	_, _, seq, err := ParseDocNumber(doc)
	if err != nil {
		return err
	}
	if err := s.client.SetNX(ctx, key, seq, 0).Err(); err != nil {
		return fmt.Errorf("orders: seed %s: %w", key, err)
	}
	return nil
}
