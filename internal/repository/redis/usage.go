package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"teamy/internal/domain/usage"
	"teamy/pkg/errors"
)

var _ usage.Repository = (*UsageRepository)(nil)

// maxClearRetries bounds optimistic retries of DeleteAll under write contention
const maxClearRetries = 5

// UsageRepository stores one hash per user (field per counter column) plus a
// set indexing known user ids. Mutations run in MULTI/EXEC.
type UsageRepository struct {
	client *redis.Client
	prefix string
}

// NewUsageRepository creates a new usage repository under keyPrefix
func NewUsageRepository(client *redis.Client, keyPrefix string) *UsageRepository {
	return &UsageRepository{
		client: client,
		prefix: keyPrefix,
	}
}

func (r *UsageRepository) usersKey() string {
	return r.prefix + ":usage:users"
}

func (r *UsageRepository) recordKey(userID int64) string {
	return fmt.Sprintf("%s:usage:%d", r.prefix, userID)
}

// Touch registers the user; absent counter fields read as zero
func (r *UsageRepository) Touch(ctx context.Context, userID int64) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, r.usersKey(), userID)
		pipe.HSetNX(ctx, r.recordKey(userID), usage.UserIDColumn, userID)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to touch usage record: user_id=%d", userID)
	}
	return nil
}

// Increment registers the user and bumps cmd's field atomically
func (r *UsageRepository) Increment(ctx context.Context, userID int64, cmd usage.Command) error {
	if !cmd.Valid() {
		return errors.Wrapf(errors.ErrInvalidInput, "untracked command %d", int(cmd))
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, r.usersKey(), userID)
		pipe.HSetNX(ctx, r.recordKey(userID), usage.UserIDColumn, userID)
		pipe.HIncrBy(ctx, r.recordKey(userID), cmd.Column(), 1)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to increment %s: user_id=%d", cmd, userID)
	}
	return nil
}

// Get retrieves the record for userID
func (r *UsageRepository) Get(ctx context.Context, userID int64) (*usage.Record, error) {
	fields, err := r.client.HGetAll(ctx, r.recordKey(userID)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get usage record: user_id=%d", userID)
	}
	if len(fields) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "usage record not found: user_id=%d", userID)
	}

	return decodeRecord(userID, fields)
}

// List retrieves every indexed record ordered by user_id
func (r *UsageRepository) List(ctx context.Context) ([]*usage.Record, error) {
	members, err := r.client.SMembers(ctx, r.usersKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list usage users")
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "corrupt user id %q in usage index", m)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.recordKey(id))
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, errors.Wrap(err, "failed to load usage records")
		}
	}

	records := make([]*usage.Record, 0, len(ids))
	for i, id := range ids {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			// cleared between SMEMBERS and HGETALL
			continue
		}
		rec, err := decodeRecord(id, fields)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

// Count returns the number of indexed users
func (r *UsageRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.client.SCard(ctx, r.usersKey()).Result()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count usage records")
	}
	return n, nil
}

// DeleteAll drops every record and the index. The index is WATCHed so a
// concurrent first-time write forces a retry instead of leaving an orphan hash.
func (r *UsageRepository) DeleteAll(ctx context.Context) (int64, error) {
	var removed int64

	clearTx := func(tx *redis.Tx) error {
		members, err := tx.SMembers(ctx, r.usersKey()).Result()
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(members)+1)
		for _, m := range members {
			keys = append(keys, r.prefix+":usage:"+m)
		}
		keys = append(keys, r.usersKey())

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, keys...)
			return nil
		})
		if err == nil {
			removed = int64(len(members))
		}
		return err
	}

	for i := 0; i < maxClearRetries; i++ {
		err := r.client.Watch(ctx, clearTx, r.usersKey())
		if err == nil {
			return removed, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return 0, errors.Wrap(err, "failed to clear usage records")
		}
	}

	return 0, errors.Wrap(errors.ErrUnavailable, "failed to clear usage records: too much contention")
}

func decodeRecord(userID int64, fields map[string]string) (*usage.Record, error) {
	rec := usage.NewRecord(userID)
	for _, cmd := range usage.Commands() {
		raw, ok := fields[cmd.Column()]
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "corrupt %s for user_id=%d", cmd.Column(), userID)
		}
		rec.Counters[cmd] = v
	}
	return rec, nil
}
