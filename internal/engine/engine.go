// Package engine implements the run controller (C9): the top-level pure
// function run(asof, config) -> Run that sequences universe/pre-filter,
// enrichment, gating, scoring, action mapping, and audit assembly.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/squeezescout/internal/action"
	"github.com/sawpanic/squeezescout/internal/config"
	"github.com/sawpanic/squeezescout/internal/enrich"
	"github.com/sawpanic/squeezescout/internal/gates"
	"github.com/sawpanic/squeezescout/internal/metrics"
	"github.com/sawpanic/squeezescout/internal/model"
	"github.com/sawpanic/squeezescout/internal/persistence"
	"github.com/sawpanic/squeezescout/internal/providers"
	"github.com/sawpanic/squeezescout/internal/scoring"
	"github.com/sawpanic/squeezescout/internal/universe"
)

// Engine bundles the long-lived collaborators a run needs: the provider
// suite, the cold-tape detector (stateful across runs), and the persistence
// collaborator. One Engine is constructed at process start and its Run
// method is invoked on each scheduler tick.
type Engine struct {
	Suite        *providers.Suite
	ColdTape     *gates.ColdTapeDetector
	Repo         persistence.DiscoveryRepo
	UniverseSrc  universe.Source
	Snapshot     map[string]providers.SnapshotRow
	Concurrency  int
}

// idForCandidate builds the candidate row ID convention from §6.
func idForCandidate(ticker string, epochMS int64) string {
	return fmt.Sprintf("%s-%d", ticker, epochMS)
}

// idForAudit builds the audit-row ID convention from §6.
func idForAudit(epochMS int64) string {
	return fmt.Sprintf("audit-%d-%d", epochMS, epochMS)
}

// Run executes one full discovery pass for asof under preset, returning the
// audited result. Determinism: identical preset + identical provider
// responses + identical asof produce a byte-identical ordered candidate list
// (no wall-clock reads affect ordering or scores).
func (e *Engine) Run(ctx context.Context, asof time.Time, preset config.Preset, providerCfg config.ProvidersConfig, held map[string]bool, runID string) (*model.Run, error) {
	startedAt := time.Now()
	defer func() { metrics.RunDuration.Observe(time.Since(startedAt).Seconds()) }()

	digest, err := config.Digest(preset)
	if err != nil {
		return nil, fmt.Errorf("compute config digest: %w", err)
	}

	run := &model.Run{
		RunID: runID, Asof: asof, Preset: preset.Name, ConfigDigest: digest,
		GateCounts: make(map[string]int),
		Drops:      make(map[string][]string),
	}

	// C5: universe + pre-filter.
	rawUniverse, err := e.UniverseSrc.ActiveTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	run.UniverseCount = len(rawUniverse)

	active := universe.FilterHeld(rawUniverse, held)
	prefiltered := universe.PreFilter(active, e.Snapshot, preset.MaxPrefilteredTickers)
	run.PrefilteredCount = len(prefiltered)

	if err := ctx.Err(); err != nil {
		run.Cancelled = true
		return run, nil
	}

	// C4: enrichment.
	budget := providerCfg.Global.GlobalBudget
	records := enrich.Enrich(ctx, prefiltered, held, e.Suite, e.Concurrency, budget, asof)
	run.EnrichedCount = len(records)

	// Effective (possibly cold-tape-relaxed) thresholds for this run.
	coldActive := e.ColdTape.IsActive(preset.ColdTape)
	run.RelaxationActive = coldActive
	thresholds, momentum := preset.Thresholds, preset.Momentum
	if coldActive {
		thresholds, momentum = gates.RelaxedThresholds(thresholds, momentum, preset.ColdTape.Relaxation)
	}

	// C6: gate engine.
	var candidates []model.Candidate
	var counts model.GateCounts

	for _, rec := range records {
		if reasons := gates.HardEliminate(rec, thresholds, preset.Exclusions); len(reasons) > 0 {
			run.Drops[rec.Ticker] = reasons
			continue
		}

		soft := gates.SoftScore(rec, thresholds, momentum, coldActive)
		rec.GateScore = soft.GateScore
		rec.Flags = soft.Flags

		if soft.PassTradeReady {
			counts.TradeReadyMomentum++
		}
		if rec.Flags.GoodTechnicals {
			counts.Technical++
		}
		if rec.ShortInterestPct != nil && *rec.ShortInterestPct >= thresholds.ShortInterestPctPref {
			counts.Squeeze++
		}
		if rec.Catalyst.Type != "" {
			counts.Catalyst++
		}

		// C7: scorer.
		scoreResult := scoring.Score(rec, preset.Weights, thresholds)
		composite := scoreResult.Composite
		if coldActive && composite > preset.ColdTape.ScoreCeiling {
			composite = preset.ColdTape.ScoreCeiling
		}
		rec.CompositeScore = composite

		// C8: action mapper.
		tier, act := action.Map(action.Inputs{
			Composite: composite, PassTradeReady: soft.PassTradeReady, PassEarly: soft.PassEarly,
			Price: rec.Price, VWAP: rec.Technicals.VWAP, CatalystPresent: rec.Catalyst.Type != "",
			ColdTapeActive: coldActive, VWAPHeldOrReclaimed: rec.Technicals.VWAPHeldOrReclaimed,
			EMA9: rec.Technicals.EMA9, EMA20: rec.Technicals.EMA20, ATRPct: rec.Technicals.ATRPct,
			RSI: rec.Technicals.RSI, RelVolume: rec.Technicals.RelVolume,
		}, preset.Tiers, thresholds)
		rec.Tier, rec.Action = tier, act

		entryType := "base_breakout"
		if rec.Technicals.VWAPHeldOrReclaimed {
			entryType = "vwap_reclaim"
		}

		candidates = append(candidates, model.Candidate{
			Ticker: rec.Ticker, Price: rec.Price, CompositeScore: composite, Tier: tier, Action: act,
			EntryHint: model.EntryHint{Type: entryType},
			Risk: model.RiskLevels{
				StopLoss: 0.90 * rec.Price, TP1: 1.20 * rec.Price, TP2: 1.50 * rec.Price,
			},
			ScoreExplain: model.ScoreExplain{
				Components: scoreResult.Components, GateFlags: rec.Flags, GateScore: rec.GateScore,
				MissingFields: rec.MissingFields, ColdTapeCapped: coldActive && scoreResult.Composite > preset.ColdTape.ScoreCeiling,
			},
			Record: rec,
		})
	}

	e.ColdTape.Record(counts, preset.ColdTape)
	run.GateCounts["trade_ready_momentum"] = counts.TradeReadyMomentum
	run.GateCounts["technical"] = counts.Technical
	run.GateCounts["squeeze"] = counts.Squeeze
	run.GateCounts["catalyst"] = counts.Catalyst

	sortCandidates(candidates)
	run.Candidates = candidates
	run.PassedCount = len(candidates)

	for _, c := range candidates {
		metrics.CandidatesByTier.WithLabelValues(string(c.Tier)).Inc()
	}
	if coldActive {
		metrics.ColdTapeActive.Set(1)
	} else {
		metrics.ColdTapeActive.Set(0)
	}

	persistRun(ctx, e.Repo, run, asof)

	return run, nil
}

// sortCandidates applies the §4.7 tie-break total order.
func sortCandidates(candidates []model.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		if a.Record.Technicals.RelVolume != b.Record.Technicals.RelVolume {
			return a.Record.Technicals.RelVolume > b.Record.Technicals.RelVolume
		}
		if a.Record.Catalyst.Strength != b.Record.Catalyst.Strength {
			return a.Record.Catalyst.Strength > b.Record.Catalyst.Strength
		}
		if a.Record.Catalyst.DaysToEvent != b.Record.Catalyst.DaysToEvent {
			return a.Record.Catalyst.DaysToEvent < b.Record.Catalyst.DaysToEvent
		}
		if a.Record.Technicals.ATRPct != b.Record.Technicals.ATRPct {
			return a.Record.Technicals.ATRPct > b.Record.Technicals.ATRPct
		}
		return a.Price < b.Price
	})
}

func persistRun(ctx context.Context, repo persistence.DiscoveryRepo, run *model.Run, asof time.Time) {
	epochMS := asof.UnixMilli()
	for _, c := range run.Candidates {
		row := persistence.DiscoveryRow{
			ID: idForCandidate(c.Ticker, epochMS), Symbol: c.Ticker, Price: c.Price,
			Score: c.CompositeScore, Preset: run.Preset, Action: string(c.Action),
			FeaturesJSON: map[string]interface{}{"ticker": c.Ticker, "tier": c.Tier},
			AuditJSON:    map[string]interface{}{"run_id": run.RunID},
		}
		if err := repo.InsertDiscovery(ctx, row); err != nil {
			log.Warn().Str("ticker", c.Ticker).Err(err).Msg("insertDiscovery failed, run continues")
		}
	}

	auditRow := persistence.DiscoveryRow{
		ID: idForAudit(epochMS), Symbol: "", Price: 0, Score: 0, Preset: run.Preset, Action: "",
		FeaturesJSON: map[string]interface{}{},
		AuditJSON: map[string]interface{}{
			"run_id": run.RunID, "universe_count": run.UniverseCount, "prefiltered_count": run.PrefilteredCount,
			"enriched_count": run.EnrichedCount, "passed_count": run.PassedCount,
			"gate_counts": run.GateCounts, "relaxation_active": run.RelaxationActive,
		},
	}
	if err := repo.InsertDiscovery(ctx, auditRow); err != nil {
		log.Warn().Err(err).Msg("insertDiscovery audit row failed, run continues")
	}
}

