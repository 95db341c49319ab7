package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-stats-api/internal/models"
)

const participationMarker = "participation"

// BufferRepository is the fast shared store for page-view increments. Each
// course owns one hash of field -> pending count; a shard-wide set tracks
// which course hashes currently hold data. All mutations are single-key
// atomic operations or same-key pipelines, so many producers and the one
// active drainer compose without multi-key transactions.
type BufferRepository struct {
	client *redis.Client
	shard  string
	logger *zap.Logger
}

// NewBufferRepository constructs a buffer repository for one shard.
func NewBufferRepository(client *redis.Client, shard string, logger *zap.Logger) *BufferRepository {
	return &BufferRepository{client: client, shard: shard, logger: logger}
}

func (r *BufferRepository) pendingKey() string {
	return fmt.Sprintf("activity:buffer:%s:pending", r.shard)
}

func (r *BufferRepository) workingKey() string {
	return fmt.Sprintf("activity:buffer:%s:working", r.shard)
}

func (r *BufferRepository) lockKey() string {
	return fmt.Sprintf("activity:buffer:%s:lock", r.shard)
}

func (r *BufferRepository) courseKey(courseID string) string {
	return fmt.Sprintf("activity:buffer:%s:course:%s", r.shard, courseID)
}

func (r *BufferRepository) courseIDFromKey(key string) string {
	idx := strings.LastIndex(key, ":")
	if idx < 0 {
		return key
	}
	return key[idx+1:]
}

// encodeField builds the hash field for a category on a calendar day.
func encodeField(category string, date time.Time) string {
	day := date.UTC().Truncate(24 * time.Hour)
	return fmt.Sprintf("%s:%d", category, day.Unix())
}

// parseField decodes a view field back into category and day. A field
// that does not carry a decodable day is reported as malformed.
func parseField(field string) (category string, day time.Time, ok bool) {
	idx := strings.LastIndex(field, ":")
	if idx <= 0 {
		return "", time.Time{}, false
	}
	epoch, err := strconv.ParseInt(field[idx+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return field[:idx], time.Unix(epoch, 0).UTC(), true
}

// IncrementBuffered records one page view (and optionally a participation)
// in the course's hash and marks the course as pending, all in one atomic
// batch against the shared store.
func (r *BufferRepository) IncrementBuffered(ctx context.Context, courseID string, date time.Time, category string, participated bool) error {
	key := r.courseKey(courseID)
	field := encodeField(category, date)

	pipe := r.client.TxPipeline()
	pipe.HIncrBy(ctx, key, field, 1)
	if participated {
		pipe.HIncrBy(ctx, key, field+":"+participationMarker, 1)
	}
	pipe.SAdd(ctx, r.pendingKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("buffer increment for course %s: %w", courseID, err)
	}
	return nil
}

// AcquireLock claims the shard's drain lease for the given TTL. It returns
// false without error when another drain already holds the lease. The TTL
// keeps a crashed drainer from wedging the shard.
func (r *BufferRepository) AcquireLock(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.lockKey(), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire drain lock: %w", err)
	}
	return ok, nil
}

// ReleaseLock drops the shard's drain lease.
func (r *BufferRepository) ReleaseLock(ctx context.Context) error {
	if err := r.client.Del(ctx, r.lockKey()).Err(); err != nil {
		return fmt.Errorf("release drain lock: %w", err)
	}
	return nil
}

// Snapshot hands the pending set over to the drainer by renaming it to the
// working set, but only when no working set exists. An existing working
// set means a prior drain crashed mid-flight; it is resumed as-is, which
// makes crash recovery a no-op resume instead of a separate procedure.
// Returns false when there is no work at all.
func (r *BufferRepository) Snapshot(ctx context.Context) (bool, error) {
	stale, err := r.client.Exists(ctx, r.workingKey()).Result()
	if err != nil {
		return false, fmt.Errorf("check working set: %w", err)
	}
	if stale > 0 {
		return true, nil
	}

	pending, err := r.client.Exists(ctx, r.pendingKey()).Result()
	if err != nil {
		return false, fmt.Errorf("check pending set: %w", err)
	}
	if pending == 0 {
		return false, nil
	}

	if err := r.client.RenameNX(ctx, r.pendingKey(), r.workingKey()).Err(); err != nil {
		// The pending set may have been drained out from under us; treat
		// a vanished source as no work rather than a failure.
		if strings.Contains(err.Error(), "no such key") {
			return false, nil
		}
		return false, fmt.Errorf("snapshot pending set: %w", err)
	}
	return true, nil
}

// PopCourse removes and returns one course key from the working set, or
// "" when the set is exhausted.
func (r *BufferRepository) PopCourse(ctx context.Context) (string, error) {
	key, err := r.client.SPop(ctx, r.workingKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("pop working set: %w", err)
	}
	return key, nil
}

// DrainCourse atomically reads and deletes one course's hash, pops the
// next course key and refreshes the drain lock's TTL, bounding total drain
// time against the lease. It returns the decoded deltas and the next
// course key ("" when the working set is exhausted).
func (r *BufferRepository) DrainCourse(ctx context.Context, courseKey string, lockTTL time.Duration) ([]models.BufferedDelta, string, error) {
	pipe := r.client.TxPipeline()
	hashCmd := pipe.HGetAll(ctx, courseKey)
	pipe.Del(ctx, courseKey)
	nextCmd := pipe.SPop(ctx, r.workingKey())
	pipe.Expire(ctx, r.lockKey(), lockTTL)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, "", fmt.Errorf("drain course %s: %w", courseKey, err)
	}

	next, err := nextCmd.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, "", fmt.Errorf("pop next course: %w", err)
	}

	return r.decodeDeltas(courseKey, hashCmd.Val()), next, nil
}

// decodeDeltas turns a drained hash into consolidated deltas. Participation
// fields are read alongside their matching view field, never independently;
// malformed fields are skipped so one corrupt entry cannot block the rest
// of the batch.
func (r *BufferRepository) decodeDeltas(courseKey string, fields map[string]string) []models.BufferedDelta {
	courseID := r.courseIDFromKey(courseKey)
	deltas := make([]models.BufferedDelta, 0, len(fields))

	for field, raw := range fields {
		if strings.HasSuffix(field, ":"+participationMarker) {
			continue
		}

		category, day, ok := parseField(field)
		if !ok {
			r.logger.Warn("skipping malformed buffer field",
				zap.String("course", courseID), zap.String("field", field))
			continue
		}

		views, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			r.logger.Warn("skipping non-numeric buffer count",
				zap.String("course", courseID), zap.String("field", field))
			continue
		}

		var participations int64
		if rawPart, found := fields[field+":"+participationMarker]; found {
			if parsed, err := strconv.ParseInt(rawPart, 10, 64); err == nil {
				participations = parsed
			}
		}

		deltas = append(deltas, models.BufferedDelta{
			CourseID:       courseID,
			Date:           day,
			Category:       category,
			Views:          views,
			Participations: participations,
		})
	}

	return deltas
}
