package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidkorenblit/fpl-assistant/internal/types"
)

func budgetMid() types.Player {
	return types.Player{
		ID:            101,
		Name:          "Budget Mid",
		Position:      types.PositionMID,
		TeamID:        1,
		Price:         4.0,
		MomentumScore: 0.8,
		Form:          8.0,
	}
}

func TestMultiObjectiveScore_BudgetPlayer(t *testing.T) {
	// momentum 0.8, price 4.0, form 8, neutral fixtures:
	// 0.8*0.4 + 1.0*0.25 + 0.7*0.20 + 0.8*0.15 = 0.83
	got := MultiObjectiveScore(budgetMid(), neutralFixtureScore)
	assert.Equal(t, 0.83, got)
}

func TestMultiObjectiveScore_PriceFloor(t *testing.T) {
	cheap := budgetMid()
	cheap.Price = 3.8
	// prices below 4.0 are floored, so value does not inflate further
	assert.Equal(t, MultiObjectiveScore(budgetMid(), 0.7), MultiObjectiveScore(cheap, 0.7))
}

func TestMultiObjectiveScore_ZeroFormIsNeutral(t *testing.T) {
	p := budgetMid()
	p.Form = 0
	// form term falls back to 0.5: 0.32 + 0.25 + 0.14 + 0.075 = 0.785
	assert.Equal(t, 0.785, MultiObjectiveScore(p, neutralFixtureScore))
}

func TestMultiObjectiveScore_ExpensivePlayerValueDrops(t *testing.T) {
	premium := budgetMid()
	premium.Price = 13.0
	assert.Less(t, MultiObjectiveScore(premium, 0.7), MultiObjectiveScore(budgetMid(), 0.7))
}

func TestCaptainScore_OnlyAttackers(t *testing.T) {
	p := budgetMid()
	for _, pos := range []types.Position{types.PositionGK, types.PositionDEF} {
		p.Position = pos
		assert.Equal(t, 0.0, CaptainScore(p), "position %s", pos)
	}
}

func TestCaptainScore_Premium(t *testing.T) {
	p := types.Player{
		Position:      types.PositionFWD,
		Price:         12.5,
		TotalPoints:   180,
		MomentumScore: 0.9,
		Form:          7.5,
	}
	// 0.9*0.4 + 0.9*0.3 + 0.75*0.2 + 0.05 (price) + 0.1 (form) = 0.93
	assert.Equal(t, 0.93, CaptainScore(p))
}

func TestCaptainScore_Clamped(t *testing.T) {
	p := types.Player{
		Position:      types.PositionFWD,
		Price:         14.0,
		TotalPoints:   300,
		MomentumScore: 1.0,
		Form:          10,
	}
	assert.Equal(t, 1.0, CaptainScore(p))
}

func TestTransferPriority_LowOwnershipBonus(t *testing.T) {
	base := budgetMid()
	base.SelectedByPercent = 25

	lowOwned := base
	lowOwned.SelectedByPercent = 5

	assert.Greater(t, TransferPriority(lowOwned), TransferPriority(base))
}

func TestValueRating(t *testing.T) {
	p := types.Player{Price: 5.0, TotalPoints: 75, MomentumScore: 0.5}
	// (75/5/30)*0.6 + (0.5/0.5)*0.4 = 0.3 + 0.4 = 0.7
	assert.Equal(t, 0.7, ValueRating(p))

	assert.Equal(t, 0.0, ValueRating(types.Player{Price: 0, TotalPoints: 100}))
}

func TestMomentumLevel(t *testing.T) {
	tests := []struct {
		momentum float64
		want     string
	}{
		{0.95, "exceptional"},
		{0.9, "exceptional"},
		{0.85, "high"},
		{0.75, "medium"},
		{0.65, "low"},
		{0.3, "very_low"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MomentumLevel(tt.momentum), "momentum %.2f", tt.momentum)
	}
}

func TestOwnershipCategory(t *testing.T) {
	assert.Equal(t, "very_low", OwnershipCategory(3))
	assert.Equal(t, "low", OwnershipCategory(10))
	assert.Equal(t, "medium", OwnershipCategory(20))
	assert.Equal(t, "high", OwnershipCategory(40))
	assert.Equal(t, "very_high", OwnershipCategory(55))
}

func TestSelectionProbability(t *testing.T) {
	// high momentum, very low ownership: 0.45 + 0.15 = 0.60 (at the ceiling)
	assert.Equal(t, 0.60, SelectionProbability(0.95, 2))

	// medium ownership adds nothing
	assert.Equal(t, 0.30, SelectionProbability(0.85, 20))

	// low momentum, heavy ownership clamps to the floor
	assert.Equal(t, 0.02, SelectionProbability(0.1, 60))

	// never certain either way
	for _, m := range []float64{0, 0.5, 0.8, 1.0} {
		for _, own := range []float64{0, 25, 70} {
			p := SelectionProbability(m, own)
			assert.GreaterOrEqual(t, p, 0.02)
			assert.LessOrEqual(t, p, 0.60)
		}
	}
}

func samplePool() []types.Player {
	return []types.Player{
		{ID: 1, Name: "Keeper", Position: types.PositionGK, TeamID: 1, Price: 5.0, MomentumScore: 0.7, Form: 4, TotalPoints: 80, SelectedByPercent: 12},
		{ID: 2, Name: "Defender", Position: types.PositionDEF, TeamID: 2, Price: 6.0, MomentumScore: 0.85, Form: 6, TotalPoints: 110, SelectedByPercent: 45},
		{ID: 3, Name: "Midfielder", Position: types.PositionMID, TeamID: 3, Price: 8.5, MomentumScore: 0.9, Form: 7, TotalPoints: 150, SelectedByPercent: 30},
		{ID: 4, Name: "Forward", Position: types.PositionFWD, TeamID: 1, Price: 11.0, MomentumScore: 0.75, Form: 5, TotalPoints: 120, SelectedByPercent: 8},
	}
}

func TestEngine_ScoreIsCached(t *testing.T) {
	e := NewEngine(GlobalSeed, time.Minute)

	first := e.Score(samplePool()[0])
	second := e.Score(samplePool()[0])
	assert.Equal(t, first, second, "repeat scoring returns the identical record")
}

func TestEngine_ReproducibleAcrossRuns(t *testing.T) {
	pool := samplePool()

	a := NewEngine(GlobalSeed, time.Minute).ScoreAll(pool)
	b := NewEngine(GlobalSeed, time.Minute).ScoreAll(pool)
	require.Equal(t, len(a), len(b))
	assert.Equal(t, a, b, "same seed and order reproduce identical results")
}

func TestEngine_ResetRandomizerRestartsSequence(t *testing.T) {
	pool := samplePool()

	e := NewEngine(GlobalSeed, time.Minute)
	first := e.ScoreAll(pool)

	e.ClearCache()
	e.ResetRandomizer(GlobalSeed)
	second := e.ScoreAll(pool)

	assert.Equal(t, first, second)
}

func TestEngine_NeutralFixtureScoreWithoutProvider(t *testing.T) {
	e := NewEngine(GlobalSeed, time.Minute)
	scored := e.Score(budgetMid())
	assert.Equal(t, 0.83, scored.MultiObjectiveScore)
}

type stubFixtures struct {
	score float64
}

func (s stubFixtures) AnalyzeTeamFixtures(teamID, lookaheadRounds int) types.FixtureAnalysis {
	return types.FixtureAnalysis{TeamID: teamID, FixtureDifficultyScore: s.score}
}

func TestEngine_UsesFixtureProvider(t *testing.T) {
	e := NewEngine(GlobalSeed, time.Minute)
	e.UseFixtures(stubFixtures{score: 1.0}, 5)

	scored := e.Score(budgetMid())
	// fixture term moves from 0.7 to 1.0: 0.83 + 0.3*0.2 = 0.89
	assert.Equal(t, 0.89, scored.MultiObjectiveScore)
}

func TestRecommendationLadder(t *testing.T) {
	assert.Equal(t, "STRONG BUY", Recommendation(0.92))
	assert.Equal(t, "BUY", Recommendation(0.82))
	assert.Equal(t, "CONSIDER", Recommendation(0.72))
	assert.Equal(t, "HOLD", Recommendation(0.62))
	assert.Equal(t, "AVOID", Recommendation(0.4))
}
