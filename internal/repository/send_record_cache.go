package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sparkmail/sparkmail/internal/database"
	"github.com/sparkmail/sparkmail/internal/model"
)

// RedisSendLog keeps the most recent send records in a capped Redis list
type RedisSendLog struct {
	rdb        *database.Redis
	key        string
	maxRecords int64
}

// NewRedisSendLog creates a send log stored under key, holding at most
// maxRecords entries
func NewRedisSendLog(rdb *database.Redis, key string, maxRecords int64) *RedisSendLog {
	return &RedisSendLog{rdb: rdb, key: key, maxRecords: maxRecords}
}

// Create pushes a record to the head of the list and trims the tail
func (r *RedisSendLog) Create(ctx context.Context, rec *model.SendRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode send record: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.key, data)
		pipe.LTrim(ctx, r.key, 0, r.maxRecords-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store send record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first
func (r *RedisSendLog) Recent(ctx context.Context, limit int) ([]model.SendRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidInput
	}

	items, err := r.rdb.LRange(ctx, r.key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list send records: %w", err)
	}

	records := make([]model.SendRecord, 0, len(items))
	for _, item := range items {
		var rec model.SendRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode send record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}
