package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/manor-engine/internal/services/events"
	"github.com/jwebster45206/manor-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/manor-engine/pkg/queue"
	"github.com/jwebster45206/manor-engine/pkg/state"
)

const (
	workerTimeout = 5 * time.Second
	lockMargin    = 30 * time.Second

	// DefaultRequeueDelay is how long a request for a locked game waits
	// before it goes back on the queue.
	DefaultRequeueDelay = 5 * time.Second
)

// releaseLockScript deletes the lock only if we own it.
var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// LockKey is the Redis key guarding one game across workers.
func LockKey(gameID uuid.UUID) string {
	return fmt.Sprintf("game-lock:%s", gameID.String())
}

// Worker processes requests in the turn queue
type Worker struct {
	id          string
	queue       *queue.TurnQueue
	processor   *TurnProcessor
	publisher   events.Publisher
	redisClient *redis.Client
	log         *slog.Logger

	requeueDelay time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(turnQueue *queue.TurnQueue, processor *TurnProcessor, redisClient *redis.Client, publisher events.Publisher, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if publisher == nil {
		publisher = events.Nop{}
	}

	return &Worker{
		id:          workerID,
		queue:       turnQueue,
		processor:   processor,
		publisher:   publisher,
		redisClient: redisClient,
		log:         log.With("worker_id", workerID),

		requeueDelay: DefaultRequeueDelay,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the worker's lock owner name.
func (w *Worker) ID() string {
	return w.id
}

// Start begins processing requests from the queue
func (w *Worker) Start() error {
	w.log.Info("Worker starting")

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down")
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err)
				// Continue processing even on error
				select {
				case <-w.ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested")
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	ctx, cancel := context.WithTimeout(w.ctx, workerTimeout+time.Second)
	defer cancel()

	req, err := w.queue.BlockingDequeueRequest(ctx, workerTimeout)
	if err != nil {
		if w.ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		return nil
	}
	return w.handle(req)
}

// handle takes the game lock for req and processes it, re-queueing the
// request when another worker holds the lock.
func (w *Worker) handle(req *queuePkg.Request) error {
	log := w.log.With("request_id", req.RequestID, "type", req.Type, "game_id", req.GameID)
	log.Info("Received request from queue", "attempts", req.Attempts)

	locked, err := w.acquireGameLock(req.GameID)
	if err != nil {
		return fmt.Errorf("failed to acquire game lock: %w", err)
	}
	if !locked {
		if req.Attempts >= w.maxAttempts() {
			log.Warn("Dropping request after too many attempts")
			w.publishFailed(req, "game is busy, try again")
			return nil
		}
		log.Info("Game already locked, re-queueing request", "retry_in", w.requeueDelay)
		select {
		case <-w.ctx.Done():
		case <-time.After(w.requeueDelay):
		}
		// Put the request back even when shutting down.
		if err := w.queue.Requeue(context.WithoutCancel(w.ctx), req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		return nil
	}

	defer w.releaseGameLock(req.GameID)
	return w.processRequest(req)
}

// acquireGameLock attempts to acquire a lock for a game
// Returns true if lock was acquired, false if already locked
func (w *Worker) acquireGameLock(gameID uuid.UUID) (bool, error) {
	return w.redisClient.SetNX(w.ctx, LockKey(gameID), w.id, w.lockTTL()).Result()
}

// lockTTL outlives the longest turn the processor allows.
func (w *Worker) lockTTL() time.Duration {
	return w.processor.timeout + lockMargin
}

// maxAttempts is how often a request for a locked game is put back before
// it is dropped. Together the retries span at least one full lock TTL.
func (w *Worker) maxAttempts() int {
	delay := w.requeueDelay
	if delay <= 0 {
		delay = DefaultRequeueDelay
	}
	return int(w.lockTTL()/delay) + 1
}

// releaseGameLock releases the lock for a game
func (w *Worker) releaseGameLock(gameID uuid.UUID) {
	ctx := context.WithoutCancel(w.ctx)
	if err := releaseLockScript.Run(ctx, w.redisClient, []string{LockKey(gameID)}, w.id).Err(); err != nil {
		w.log.Error("Failed to release game lock", "error", err, "game_id", gameID)
	}
}

// processRequest processes a single request using the TurnProcessor
func (w *Worker) processRequest(req *queuePkg.Request) error {
	start := time.Now()
	log := w.log.With("request_id", req.RequestID, "game_id", req.GameID)

	if err := w.publisher.PublishTurnProcessing(w.ctx, req.GameID, req.RequestID, req.Prompt); err != nil {
		log.Error("Failed to publish processing event", "error", err)
	}

	switch req.Type {
	case queuePkg.RequestTypeTurn:
		result, err := w.processor.ProcessTurn(w.ctx, req.GameID, req.Prompt)
		if err != nil {
			w.publishFailed(req, err.Error())
			if isPlayerError(err) {
				log.Info("Turn not accepted", "error", err)
				return nil
			}
			return fmt.Errorf("failed to process turn: %w", err)
		}
		if err := w.publisher.PublishTurnCompleted(w.ctx, req.GameID, req.RequestID, result.Turn, result.Message); err != nil {
			log.Error("Failed to publish completion event", "error", err)
		}

	case queuePkg.RequestTypeAction:
		var a state.Action
		if err := json.Unmarshal(req.Action, &a); err != nil {
			w.publishFailed(req, "invalid action")
			return fmt.Errorf("failed to decode action: %w", err)
		}
		g, err := w.processor.ApplyAction(w.ctx, req.GameID, a)
		if err != nil {
			w.publishFailed(req, err.Error())
			if isPlayerError(err) {
				log.Info("Action not accepted", "error", err)
				return nil
			}
			return fmt.Errorf("failed to apply action: %w", err)
		}
		if err := w.publisher.PublishTurnCompleted(w.ctx, req.GameID, req.RequestID, len(g.Turns), a.Summary()); err != nil {
			log.Error("Failed to publish completion event", "error", err)
		}

	default:
		w.publishFailed(req, "unknown request type")
		return fmt.Errorf("unknown request type: %s", req.Type)
	}

	log.Info("Request processed successfully", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Worker) publishFailed(req *queuePkg.Request, msg string) {
	if err := w.publisher.PublishTurnFailed(w.ctx, req.GameID, req.RequestID, msg); err != nil {
		w.log.Error("Failed to publish failure event", "error", err)
	}
}

// isPlayerError reports whether err is an expected outcome of a bad prompt
// rather than a failure of the worker.
func isPlayerError(err error) bool {
	var ef *ExternalFault
	return errors.Is(err, ErrTurnRejected) ||
		errors.Is(err, ErrGameNotFound) ||
		errors.Is(err, ErrEmptyPrompt) ||
		errors.Is(err, ErrInvalidAction) ||
		state.IsGameFault(err) ||
		errors.As(err, &ef)
}
