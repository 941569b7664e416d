package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	exportQueueKey  = "contracthub:exports:queue"
	exportKeyPrefix = "contracthub:export:"
)

var errJobMissing = errors.New("export job not found")

// ExportQueue stores export jobs and hands them to workers
type ExportQueue interface {
	// Push saves job and queues its id
	Push(ctx context.Context, job *ExportJob, ttl time.Duration) error
	// Pop blocks up to timeout for the next job id; "" means none arrived
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	Load(ctx context.Context, id string) (*ExportJob, error)
	// Save overwrites the mutable fields of a stored job
	Save(ctx context.Context, job *ExportJob) error
}

// RedisExportQueue implements ExportQueue with a list and one hash per job
type RedisExportQueue struct {
	client *redis.Client
}

func NewRedisExportQueue(client *redis.Client) *RedisExportQueue {
	return &RedisExportQueue{client: client}
}

var _ ExportQueue = (*RedisExportQueue)(nil)

func exportKey(id string) string {
	return exportKeyPrefix + id
}

func (q *RedisExportQueue) Push(ctx context.Context, job *ExportJob, ttl time.Duration) error {
	ids, err := json.Marshal(job.ContractIDs)
	if err != nil {
		return err
	}

	key := exportKey(job.ID)
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]interface{}{
			"id":           job.ID,
			"owner_id":     job.OwnerID,
			"all":          strconv.FormatBool(job.All),
			"contract_ids": string(ids),
			"status":       string(job.Status),
			"created_at":   job.CreatedAt.Format(time.RFC3339Nano),
		})
		pipe.Expire(ctx, key, ttl)
		pipe.LPush(ctx, exportQueueKey, job.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to queue export job: %w", err)
	}
	return nil
}

func (q *RedisExportQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.client.BRPop(ctx, timeout, exportQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to pop export job: %w", err)
	}
	// res is [key, value]
	return res[1], nil
}

func (q *RedisExportQueue) Load(ctx context.Context, id string) (*ExportJob, error) {
	fields, err := q.client.HGetAll(ctx, exportKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load export job: %w", err)
	}
	if len(fields) == 0 {
		return nil, errJobMissing
	}

	job := &ExportJob{
		ID:       fields["id"],
		OwnerID:  fields["owner_id"],
		All:      fields["all"] == "true",
		Status:   ExportStatus(fields["status"]),
		Location: fields["location"],
		Error:    fields["error"],
	}
	if raw := fields["contract_ids"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &job.ContractIDs); err != nil {
			return nil, fmt.Errorf("corrupt export job %s: %w", id, err)
		}
	}
	job.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields["created_at"])
	if raw := fields["finished_at"]; raw != "" {
		t, _ := time.Parse(time.RFC3339Nano, raw)
		job.FinishedAt = &t
	}
	return job, nil
}

func (q *RedisExportQueue) Save(ctx context.Context, job *ExportJob) error {
	values := map[string]interface{}{
		"status":   string(job.Status),
		"location": job.Location,
		"error":    job.Error,
	}
	if job.FinishedAt != nil {
		values["finished_at"] = job.FinishedAt.Format(time.RFC3339Nano)
	}
	// HSet would recreate an expired hash without a TTL
	exists, err := q.client.Exists(ctx, exportKey(job.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to update export job: %w", err)
	}
	if exists == 0 {
		return errJobMissing
	}
	if err := q.client.HSet(ctx, exportKey(job.ID), values).Err(); err != nil {
		return fmt.Errorf("failed to update export job: %w", err)
	}
	return nil
}
