package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrRankIndexStale means the index may have missed an update and must not
// be trusted until the next successful rebuild.
var ErrRankIndexStale = errors.New("rank index is stale")

// RankIndex keeps every user's all-time highest score in a structure that
// can count strictly-higher scores without touching the database.
type RankIndex interface {
	Set(ctx context.Context, userID string, highestScore int) error
	CountAbove(ctx context.Context, score int) (int64, error)
	// Rebuild calls load for a snapshot of the stored scores and merges it
	// into the index. It returns the number of users loaded.
	Rebuild(ctx context.Context, load func(context.Context) (map[string]int, error)) (int, error)
}

// RedisRankIndex stores the index as one sorted set: member = user id,
// score = highest score. A failed Set marks the index stale, both in
// process and through a marker key other processes check.
type RedisRankIndex struct {
	rdb *redis.Client
	key string

	mu    sync.Mutex
	stale bool
	gen   uint64
}

func NewRedisRankIndex(rdb *redis.Client, key string) *RedisRankIndex {
	return &RedisRankIndex{rdb: rdb, key: key}
}

func (r *RedisRankIndex) staleKey() string { return r.key + ":stale" }

// Set only ever raises a member's score.
func (r *RedisRankIndex) Set(ctx context.Context, userID string, highestScore int) error {
	err := r.rdb.ZAddGT(ctx, r.key, redis.Z{Score: float64(highestScore), Member: userID}).Err()
	if err != nil {
		r.invalidate(ctx)
		return fmt.Errorf("zadd %s: %w", r.key, err)
	}
	return nil
}

// invalidate stops CountAbove from answering until a rebuild that started
// after this call completes. The marker write is best effort: redis may be
// the reason Set failed.
func (r *RedisRankIndex) invalidate(ctx context.Context) {
	r.mu.Lock()
	r.stale = true
	r.gen++
	r.mu.Unlock()

	_ = r.rdb.Incr(context.WithoutCancel(ctx), r.staleKey()).Err()
}

func (r *RedisRankIndex) CountAbove(ctx context.Context, score int) (int64, error) {
	r.mu.Lock()
	stale := r.stale
	r.mu.Unlock()
	if stale {
		return 0, ErrRankIndexStale
	}

	var marked, count *redis.IntCmd
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		marked = pipe.Exists(ctx, r.staleKey())
		count = pipe.ZCount(ctx, r.key, "("+strconv.Itoa(score), "+inf")
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("zcount %s: %w", r.key, err)
	}
	if marked.Val() > 0 {
		return 0, ErrRankIndexStale
	}
	return count.Val(), nil
}

// Rebuild writes the snapshot to a scratch key, unions it with the live set
// keeping the higher score per member, and renames the result over the live
// key in one MULTI. Raises that land while the snapshot is read survive the
// union. The stale marker is watched so an invalidation during the rebuild
// aborts it.
func (r *RedisRankIndex) Rebuild(ctx context.Context, load func(context.Context) (map[string]int, error)) (int, error) {
	r.mu.Lock()
	gen := r.gen
	r.mu.Unlock()

	tmp := r.key + ":rebuild"
	var loaded int
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		scores, err := load(ctx)
		if err != nil {
			return err
		}
		loaded = len(scores)

		members := make([]redis.Z, 0, len(scores))
		for id, s := range scores {
			members = append(members, redis.Z{Score: float64(s), Member: id})
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(members) > 0 {
				pipe.Del(ctx, tmp)
				for start := 0; start < len(members); start += 500 {
					end := min(start+500, len(members))
					pipe.ZAdd(ctx, tmp, members[start:end]...)
				}
				pipe.ZUnionStore(ctx, tmp, &redis.ZStore{Keys: []string{tmp, r.key}, Aggregate: "MAX"})
				pipe.Rename(ctx, tmp, r.key)
			}
			pipe.Del(ctx, r.staleKey())
			return nil
		})
		return err
	}, r.staleKey())
	if errors.Is(err, redis.TxFailedErr) {
		return 0, fmt.Errorf("rebuild %s: invalidated while rebuilding: %w", r.key, ErrRankIndexStale)
	}
	if err != nil {
		return 0, fmt.Errorf("rebuild %s: %w", r.key, err)
	}

	r.mu.Lock()
	if r.gen == gen {
		r.stale = false
	}
	r.mu.Unlock()
	return loaded, nil
}
