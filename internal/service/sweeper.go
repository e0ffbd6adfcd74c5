package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports"

	"github.com/rs/zerolog"
)

// Sweeper periodically runs the escrow auto-finalize sweep.
type Sweeper struct {
	escrowSvc ports.EscrowService
	interval  time.Duration
	log       zerolog.Logger
	stop      chan struct{}
	running   atomic.Bool
}

// NewSweeper creates a new escrow sweeper.
func NewSweeper(escrowSvc ports.EscrowService, interval time.Duration, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		escrowSvc: escrowSvc,
		interval:  interval,
		log:       log,
		stop:      make(chan struct{}),
	}
}

// Running reports whether the sweep loop is active.
func (s *Sweeper) Running() bool {
	return s.running.Load()
}

// Start begins the sweep loop. Call in a goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	s.running.Store(true)
	defer s.running.Store(false)

	s.log.Info().Dur("interval", s.interval).Msg("escrow sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.safeSweep(ctx)
		}
	}
}

// Stop signals the sweeper to stop.
func (s *Sweeper) Stop() {
	select {
	case s.stop <- struct{}{}:
	default:
	}
}

func (s *Sweeper) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("panic", fmt.Sprint(r)).Msg("panic in escrow sweeper")
		}
	}()

	finalized, err := s.escrowSvc.SweepOnce(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("escrow sweep failed")
		return
	}
	if finalized > 0 {
		EscrowsAutoFinalized.Add(float64(finalized))
	}
}
