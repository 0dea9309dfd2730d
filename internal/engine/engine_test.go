package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/squeezescout/internal/model"
)

func mkCandidate(ticker string, composite, relVol, catalystStrength, daysToEvent, atrPct, price float64) model.Candidate {
	return model.Candidate{
		Ticker: ticker, Price: price, CompositeScore: composite,
		Record: &model.FeatureRecord{
			Ticker: ticker, Price: price,
			Technicals: model.Technicals{RelVolume: relVol, ATRPct: atrPct},
			Catalyst:   model.Catalyst{Strength: catalystStrength, DaysToEvent: daysToEvent},
		},
	}
}

func TestSortCandidates_CompositeDescFirst(t *testing.T) {
	candidates := []model.Candidate{
		mkCandidate("LOW", 40, 1, 0, 0, 1, 10),
		mkCandidate("HIGH", 80, 1, 0, 0, 1, 10),
	}
	sortCandidates(candidates)
	assert.Equal(t, "HIGH", candidates[0].Ticker)
	assert.Equal(t, "LOW", candidates[1].Ticker)
}

func TestSortCandidates_TieBreaksInOrder(t *testing.T) {
	// Equal composite: rel_volume desc breaks the tie.
	candidates := []model.Candidate{
		mkCandidate("LOWVOL", 70, 2, 0, 0, 1, 10),
		mkCandidate("HIVOL", 70, 5, 0, 0, 1, 10),
	}
	sortCandidates(candidates)
	assert.Equal(t, "HIVOL", candidates[0].Ticker)

	// Equal composite and rel_volume: catalyst strength desc.
	candidates2 := []model.Candidate{
		mkCandidate("WEAK", 70, 3, 0.2, 0, 1, 10),
		mkCandidate("STRONG", 70, 3, 0.9, 0, 1, 10),
	}
	sortCandidates(candidates2)
	assert.Equal(t, "STRONG", candidates2[0].Ticker)

	// Equal through catalyst strength: lower days-to-event wins.
	candidates3 := []model.Candidate{
		mkCandidate("FAR", 70, 3, 0.5, 20, 1, 10),
		mkCandidate("NEAR", 70, 3, 0.5, 2, 1, 10),
	}
	sortCandidates(candidates3)
	assert.Equal(t, "NEAR", candidates3[0].Ticker)

	// Equal through days-to-event: ATR% desc.
	candidates4 := []model.Candidate{
		mkCandidate("LOWATR", 70, 3, 0.5, 5, 2, 10),
		mkCandidate("HIGHATR", 70, 3, 0.5, 5, 9, 10),
	}
	sortCandidates(candidates4)
	assert.Equal(t, "HIGHATR", candidates4[0].Ticker)

	// Equal through ATR%: price asc is the final tie-break.
	candidates5 := []model.Candidate{
		mkCandidate("EXPENSIVE", 70, 3, 0.5, 5, 6, 50),
		mkCandidate("CHEAP", 70, 3, 0.5, 5, 6, 10),
	}
	sortCandidates(candidates5)
	assert.Equal(t, "CHEAP", candidates5[0].Ticker)
}

func TestSortCandidates_DeterministicAcrossRepeatedSorts(t *testing.T) {
	build := func() []model.Candidate {
		return []model.Candidate{
			mkCandidate("A", 70, 3, 0.5, 5, 6, 10),
			mkCandidate("B", 80, 2, 0.1, 1, 2, 20),
			mkCandidate("C", 70, 3, 0.5, 5, 6, 5),
			mkCandidate("D", 60, 10, 0.9, 0, 8, 1),
		}
	}

	first := build()
	sortCandidates(first)
	var order1 []string
	for _, c := range first {
		order1 = append(order1, c.Ticker)
	}

	second := build()
	sortCandidates(second)
	var order2 []string
	for _, c := range second {
		order2 = append(order2, c.Ticker)
	}

	assert.Equal(t, order1, order2)
}

func TestIDHelpers_MatchConvention(t *testing.T) {
	assert.Equal(t, "AAPL-1700000000000", idForCandidate("AAPL", 1700000000000))
	assert.Equal(t, "audit-1700000000000-1700000000000", idForAudit(1700000000000))
}
