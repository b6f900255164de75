package worker

// dlq_replay.go
// Periodically moves dead-lettered jobs back to their queue so a relay that
// was down gets another chance. Jobs replayed too often are parked for
// manual inspection.

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"posmarket/internal/infra"
	"posmarket/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	replayBatchSize = 10
	parkedSuffix    = ":parked"
)

type ReplayConfig struct {
	RDB        *redis.Client
	Breaker    *infra.CircuitBreaker // nil disables the open-circuit skip
	Queues     []string
	Interval   time.Duration
	MaxReplays int
}

// StartDLQReplay ticks every cfg.Interval until ctx is cancelled.
func StartDLQReplay(ctx context.Context, cfg ReplayConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.MaxReplays <= 0 {
		cfg.MaxReplays = 3
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()
		log.Info().Dur("interval", cfg.Interval).Msg("dlq_replay: started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("dlq_replay: shutting down")
				return
			case <-ticker.C:
				replayOnce(ctx, cfg)
				reportBacklog(ctx, cfg)
			}
		}
	}()
}

// replayOnce moves up to replayBatchSize entries per queue. Returns how many
// jobs were re-enqueued.
func replayOnce(ctx context.Context, cfg ReplayConfig) int {
	if cfg.Breaker != nil && cfg.Breaker.State() == infra.BreakerOpen {
		log.Debug().Msg("dlq_replay: circuit breaker is open, skipping tick")
		return 0
	}
	replayed := 0
	for _, queue := range cfg.Queues {
		for i := 0; i < replayBatchSize; i++ {
			raw, err := cfg.RDB.RPop(ctx, DLQPrefix+queue).Result()
			if errors.Is(err, redis.Nil) {
				break
			}
			if err != nil {
				log.Error().Err(err).Str("queue", queue).Msg("dlq_replay: pop failed")
				break
			}
			var entry DLQEntry
			if err := json.Unmarshal([]byte(raw), &entry); err != nil {
				log.Error().Err(err).Str("queue", queue).Msg("dlq_replay: corrupt entry dropped")
				continue
			}
			if entry.Replays >= cfg.MaxReplays {
				if err := cfg.RDB.LPush(ctx, DLQPrefix+queue+parkedSuffix, raw).Err(); err != nil {
					log.Error().Err(err).Msg("dlq_replay: park failed")
				}
				continue
			}
			job := Job{Type: entry.JobType, Payload: entry.Payload, Replays: entry.Replays + 1}
			if err := push(ctx, cfg.RDB, queue, job); err != nil {
				log.Error().Err(err).Str("queue", queue).Msg("dlq_replay: re-enqueue failed")
				continue
			}
			replayed++
		}
	}
	if replayed > 0 {
		log.Info().Int("replayed", replayed).Msg("dlq_replay: jobs re-enqueued")
	}
	return replayed
}

// reportBacklog publishes what is still dead-lettered after a tick.
func reportBacklog(ctx context.Context, cfg ReplayConfig) {
	for _, queue := range cfg.Queues {
		n, err := DLQLength(ctx, cfg.RDB, queue)
		if err != nil {
			log.Warn().Err(err).Str("queue", queue).Msg("dlq_replay: backlog unavailable")
			continue
		}
		metrics.DLQPendientes.WithLabelValues(queue).Set(float64(n))
	}
}
