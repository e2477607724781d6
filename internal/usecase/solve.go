package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/captcha-solver/internal/imagecodec"
	"github.com/example/captcha-solver/internal/logging"
	"github.com/example/captcha-solver/internal/solver"
)

// ErrTooManyCandidates is returned when a request carries more options than
// the configured limit.
var ErrTooManyCandidates = errors.New("usecase: too many candidate images")

// SolveUseCase decodes solve requests, ranks the options and memoises the
// outcome when a cache is configured.
type SolveUseCase struct {
	cache          Cache
	logger         *zap.Logger
	metrics        *metrics
	maxOptions     int
	cacheTTL       time.Duration
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewSolveUseCase constructs a new use case instance. cache may be nil, in
// which case every request is computed.
func NewSolveUseCase(cache Cache, logger *zap.Logger, maxOptions int, cacheTTL time.Duration) *SolveUseCase {
	return &SolveUseCase{
		cache:          cache,
		logger:         logger.Named("solve_usecase"),
		metrics:        &metrics{},
		maxOptions:     maxOptions,
		cacheTTL:       cacheTTL,
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// IsPreconditionError reports whether err was caused by a malformed request
// rather than a processing failure.
func IsPreconditionError(err error) bool {
	return errors.Is(err, solver.ErrNoCandidates) || errors.Is(err, ErrTooManyCandidates)
}

// Solve ranks the base64 encoded options against the base64 encoded target.
// It returns the generated request id alongside the result.
func (uc *SolveUseCase) Solve(ctx context.Context, target string, options []string) (string, *solver.Result, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.solve", requestID)
	start := time.Now()

	result, cached, err := uc.solve(ctx, requestID, target, options)
	uc.metrics.record(result, cached, err, time.Since(start))
	if err != nil {
		opLogger.Warn("solve failed", zap.Error(err), zap.Int("options", len(options)))
		return requestID, nil, err
	}

	opLogger.Info("solve completed",
		zap.Int("options", len(options)),
		zap.Int("answer", result.Answer),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("cached", cached),
		zap.Duration("latency", time.Since(start)),
	)
	return requestID, result, nil
}

func (uc *SolveUseCase) solve(ctx context.Context, requestID, target string, options []string) (*solver.Result, bool, error) {
	if len(options) == 0 {
		return nil, false, logging.NewOperationError("usecase.validate", requestID, solver.ErrNoCandidates)
	}
	if uc.maxOptions > 0 && len(options) > uc.maxOptions {
		err := fmt.Errorf("%w: %d > %d", ErrTooManyCandidates, len(options), uc.maxOptions)
		return nil, false, logging.NewOperationError("usecase.validate", requestID, err)
	}

	cacheKey := solveCacheKey(target, options)
	if result, ok := uc.lookup(ctx, requestID, cacheKey, len(options)); ok {
		return result, true, nil
	}

	targetImg, optionImgs, err := imagecodec.DecodeAll(target, options)
	if err != nil {
		return nil, false, logging.NewOperationError("usecase.decode", requestID, err)
	}

	result, err := solver.Solve(targetImg, optionImgs)
	if err != nil {
		return nil, false, logging.NewOperationError("usecase.score", requestID, err)
	}

	uc.store(ctx, requestID, cacheKey, result)
	return result, false, nil
}

// lookup returns a memoised result. Cache trouble is logged and treated as a
// miss.
func (uc *SolveUseCase) lookup(ctx context.Context, requestID, cacheKey string, optionCount int) (*solver.Result, bool) {
	if uc.cache == nil {
		return nil, false
	}

	opLogger := logging.WithOperation(uc.logger, "usecase.cache_lookup", requestID)
	cached, err := uc.withRedisGet(ctx, requestID, "cache.get.result", cacheKey)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			opLogger.Warn("failed to read cache", zap.Error(err))
		}
		return nil, false
	}

	var result solver.Result
	if err := json.Unmarshal([]byte(cached), &result); err != nil {
		opLogger.Warn("failed to decode cached result", zap.Error(err))
		return nil, false
	}
	if len(result.Scores) != optionCount || result.Answer < 1 || result.Answer > optionCount {
		opLogger.Warn("discarding inconsistent cached result", zap.Int("scores", len(result.Scores)))
		return nil, false
	}
	return &result, true
}

func (uc *SolveUseCase) store(ctx context.Context, requestID, cacheKey string, result *solver.Result) {
	if uc.cache == nil {
		return
	}

	opLogger := logging.WithOperation(uc.logger, "usecase.cache_store", requestID)
	serialized, err := json.Marshal(result)
	if err != nil {
		opLogger.Error("failed to serialize solve result", zap.Error(err))
		return
	}

	if err := uc.withRedisRetry(ctx, requestID, "cache.set.result", func() error {
		return uc.cache.Set(ctx, cacheKey, string(serialized), uc.cacheTTL)
	}); err != nil {
		opLogger.Warn("failed to cache solve result", zap.Error(err))
	}
}

func solveCacheKey(target string, options []string) string {
	h := sha1.New()
	h.Write([]byte(target))
	for _, opt := range options {
		h.Write([]byte{0})
		h.Write([]byte(opt))
	}
	return "solve:" + hex.EncodeToString(h.Sum(nil))
}

func (uc *SolveUseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		err := fn()
		return logging.NewOperationError(operation, requestID, err)
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if errors.Is(err, redis.Nil) {
			return logging.NewOperationError(operation, requestID, err)
		}
		if !isTransientError(err) || attempt == uc.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func (uc *SolveUseCase) withRedisGet(ctx context.Context, requestID, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
