package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/manor-engine/pkg/queue"
)

// RequestsKey is the Redis list shared by every API and worker process.
const RequestsKey = "requests"

// TurnQueue is the global FIFO of turn requests waiting for a worker.
type TurnQueue struct {
	client *Client
	logger *slog.Logger
}

func NewTurnQueue(client *Client, logger *slog.Logger) *TurnQueue {
	return &TurnQueue{
		client: client,
		logger: logger,
	}
}

// EnqueueRequest appends req to the back of the queue.
func (q *TurnQueue) EnqueueRequest(ctx context.Context, req *queue.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}

	if err := q.client.rdb.RPush(ctx, RequestsKey, data).Err(); err != nil {
		q.logger.Error("Failed to enqueue request", "error", err, "request_id", req.RequestID)
		return fmt.Errorf("failed to enqueue request: %w", err)
	}
	q.logger.Debug("Enqueued request", "request_id", req.RequestID, "game_id", req.GameID, "type", req.Type)
	return nil
}

// Requeue puts req back at the end of the queue and counts the attempt.
func (q *TurnQueue) Requeue(ctx context.Context, req *queue.Request) error {
	req.Attempts++
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}
	if err := q.client.rdb.RPush(ctx, RequestsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to requeue request: %w", err)
	}
	return nil
}

// DequeueRequest removes and returns the next request from the global queue
// Returns nil if queue is empty
func (q *TurnQueue) DequeueRequest(ctx context.Context) (*queue.Request, error) {
	result, err := q.client.rdb.LPop(ctx, RequestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	req, err := queue.FromJSON([]byte(result))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// BlockingDequeueRequest waits up to timeout for a request. It returns
// (nil, nil) when the timeout passes with the queue still empty.
func (q *TurnQueue) BlockingDequeueRequest(ctx context.Context, timeout time.Duration) (*queue.Request, error) {
	result, err := q.client.rdb.BLPop(ctx, timeout, RequestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}

	req, err := queue.FromJSON([]byte(result[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// Depth returns the number of requests in the global queue
func (q *TurnQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, RequestsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get request queue depth: %w", err)
	}
	return int(count), nil
}
