package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/clubkit/pkg/logger"
)

// SweepReport summarizes one pass over the sweep candidates.
type SweepReport struct {
	Scanned  int64         `json:"scanned"`
	Updated  int64         `json:"updated"`
	Extended int64         `json:"extended"`
	Failed   int64         `json:"failed"`
	Took     time.Duration `json:"took"`
}

// Sweep evaluates every club that may need work: trials and grace periods
// whose phase changed, pending plan changes that came due, and trialing
// clubs that may qualify for an extension. A club failing on a transient
// storage error gets one more try; after that it is logged and counted and
// the pass goes on.
func (s *Service) Sweep(ctx context.Context) (SweepReport, error) {
	var scanned, updated, extended, failed atomic.Int64
	started := s.now()
	after := uuid.Nil

	report := func() SweepReport {
		return SweepReport{
			Scanned:  scanned.Load(),
			Updated:  updated.Load(),
			Extended: extended.Load(),
			Failed:   failed.Load(),
			Took:     s.now().Sub(started),
		}
	}

	for {
		ids, err := s.store.ListSweepCandidates(ctx, started, after, s.policy.SweepBatchSize)
		if err != nil {
			return report(), errors.Join(ErrPersistence, err)
		}
		if len(ids) == 0 {
			break
		}

		var g errgroup.Group
		g.SetLimit(s.policy.SweepConcurrency)
		for _, id := range ids {
			g.Go(func() error {
				scanned.Add(1)
				res, err := s.EvaluateClub(ctx, id)
				if err != nil && IsRetryable(err) && ctx.Err() == nil {
					res, err = s.EvaluateClub(ctx, id)
				}
				if err != nil {
					failed.Add(1)
					s.logger.WarnContext(ctx, "sweep: club evaluation failed",
						logger.ClubID(id),
						logger.Error(err),
					)
					return nil
				}
				if res.Updated {
					updated.Add(1)
				}
				if res.Applied {
					extended.Add(1)
				}
				return nil
			})
		}
		_ = g.Wait()

		if len(ids) < s.policy.SweepBatchSize {
			break
		}
		after = ids[len(ids)-1]
		if err := ctx.Err(); err != nil {
			return report(), err
		}
	}

	r := report()
	s.logger.InfoContext(ctx, "sweep finished",
		slog.Int64("scanned", r.Scanned),
		slog.Int64("updated", r.Updated),
		slog.Int64("extended", r.Extended),
		slog.Int64("failed", r.Failed),
		logger.Duration(r.Took),
	)
	return r, nil
}

// RunSweep is Sweep without the report, for job runners.
func (s *Service) RunSweep(ctx context.Context) error {
	_, err := s.Sweep(ctx)
	return err
}
