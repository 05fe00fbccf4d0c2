package usecase

import (
	"context"
	"fmt"

	domrepo "FeatCast/internal/domain/repository"
	"FeatCast/pkg/queue"
)

// RecomputePayload describes one warmup request on the recompute queue.
type RecomputePayload struct {
	Symbol string `json:"symbol"`
	Bars   int    `json:"bars"`
	TF     string `json:"tf"`
}

// RecomputeJob warms the feature snapshot cache for a symbol so interactive
// reads are served from the fingerprint cache.
type RecomputeJob struct {
	features *FeaturesUseCase
}

func NewRecomputeJob(features *FeaturesUseCase) *RecomputeJob {
	return &RecomputeJob{features: features}
}

func (j *RecomputeJob) Name() string { return "feature_recompute" }
func (j *RecomputeJob) Type() string { return "feature.recompute" }

func (j *RecomputeJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[RecomputePayload](payload)
	if err != nil {
		return fmt.Errorf("decode recompute payload: %w", err)
	}
	if p.Symbol == "" {
		return fmt.Errorf("recompute payload missing symbol")
	}
	if p.Bars <= 0 {
		p.Bars = 600
	}
	tf := domrepo.NormalizeTimeframe(p.TF)
	return j.features.Warmup(ctx, p.Symbol, p.Bars, tf)
}

var _ queue.Job = (*RecomputeJob)(nil)
