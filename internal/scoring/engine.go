package scoring

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davidkorenblit/fpl-assistant/internal/cache"
	"github.com/davidkorenblit/fpl-assistant/internal/types"
	"github.com/davidkorenblit/fpl-assistant/pkg/logger"
)

const (
	// GlobalSeed is the default seed for the selection randomizer. A fixed
	// seed makes full analysis runs reproducible end to end.
	GlobalSeed int64 = 42

	// neutralFixtureScore is used when no fixture engine is attached.
	neutralFixtureScore = 0.7
)

// FixtureProvider supplies fixture-difficulty analysis for a team. The
// fixture engine satisfies this; a nil provider degrades to a neutral score.
type FixtureProvider interface {
	AnalyzeTeamFixtures(teamID, lookaheadRounds int) types.FixtureAnalysis
}

// Engine scores players across every analytical dimension. One rand.Rand is
// shared across all players so that a full run with the same seed and the
// same scoring order reproduces identical selection flags. Scores are cached
// per player id so repeat lookups within a session never re-roll.
type Engine struct {
	mu        sync.Mutex
	rng       *rand.Rand
	cache     *cache.TimedCache[types.ScoredPlayer]
	fixtures  FixtureProvider
	lookahead int
	logger    *logrus.Entry
}

// NewEngine creates a scoring engine with its own seeded randomizer.
func NewEngine(seed int64, ttl time.Duration) *Engine {
	return &Engine{
		rng:       rand.New(rand.NewSource(seed)),
		cache:     cache.New[types.ScoredPlayer]("player_analysis", ttl),
		lookahead: 5,
		logger:    logger.WithComponent("scoring_engine"),
	}
}

// UseFixtures attaches a fixture provider so multi-objective scores use real
// fixture difficulty instead of the neutral placeholder.
func (e *Engine) UseFixtures(provider FixtureProvider, lookaheadRounds int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fixtures = provider
	if lookaheadRounds >= 1 {
		e.lookahead = lookaheadRounds
	}
}

// Score produces the full analytical record for one player. Results are
// cached by player id for the cache TTL, so a repeated call returns the
// identical record including the random selection flag.
func (e *Engine) Score(p types.Player) types.ScoredPlayer {
	key := cache.Key("player", p.ID)
	if cached, ok := e.cache.Get(key); ok {
		return cached
	}

	fixtureScore := e.fixtureScore(p.TeamID)

	scored := types.ScoredPlayer{
		Player:              p,
		MomentumLevel:       MomentumLevel(p.MomentumScore),
		Recommendation:      Recommendation(p.MomentumScore),
		CaptainScore:        CaptainScore(p),
		TransferPriority:    TransferPriority(p),
		MultiObjectiveScore: MultiObjectiveScore(p, fixtureScore),
		OwnershipCategory:   OwnershipCategory(p.SelectedByPercent),
		ValueRating:         ValueRating(p),
	}
	scored.Selected = e.drawSelection(p)

	e.cache.Set(key, scored)
	return scored
}

// ScoreAll scores a batch in input order. Order matters for reproducibility:
// the randomizer draws once per uncached player in scoring order.
func (e *Engine) ScoreAll(players []types.Player) []types.ScoredPlayer {
	scored := make([]types.ScoredPlayer, 0, len(players))
	for _, p := range players {
		scored = append(scored, e.Score(p))
	}

	e.logger.WithField("players_scored", len(scored)).Debug("Batch scoring completed")
	return scored
}

func (e *Engine) fixtureScore(teamID int) float64 {
	e.mu.Lock()
	provider := e.fixtures
	lookahead := e.lookahead
	e.mu.Unlock()

	if provider == nil || teamID <= 0 {
		return neutralFixtureScore
	}
	return provider.AnalyzeTeamFixtures(teamID, lookahead).FixtureDifficultyScore
}

// drawSelection rolls the seeded randomizer against the player's selection
// probability. The mutex serializes draws so concurrent scoring stays
// deterministic per seed and order.
func (e *Engine) drawSelection(p types.Player) bool {
	prob := SelectionProbability(p.MomentumScore, p.SelectedByPercent)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64() < prob
}

// ResetRandomizer reseeds the shared randomizer, restarting the draw sequence.
func (e *Engine) ResetRandomizer(seed int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng = rand.New(rand.NewSource(seed))
}

// ClearCache drops all cached player analysis.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// CacheStats reports the scoring cache snapshot.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// EvictExpired sweeps the scoring cache.
func (e *Engine) EvictExpired() int {
	return e.cache.EvictExpired()
}

// MomentumLevel buckets a momentum score into its named tier.
func MomentumLevel(momentum float64) string {
	switch {
	case momentum >= 0.9:
		return "exceptional"
	case momentum >= 0.8:
		return "high"
	case momentum >= 0.7:
		return "medium"
	case momentum >= 0.6:
		return "low"
	default:
		return "very_low"
	}
}

// Recommendation maps a momentum score onto a buy/hold/avoid call.
func Recommendation(momentum float64) string {
	switch {
	case momentum >= 0.9:
		return "STRONG BUY"
	case momentum >= 0.8:
		return "BUY"
	case momentum >= 0.7:
		return "CONSIDER"
	case momentum >= 0.6:
		return "HOLD"
	default:
		return "AVOID"
	}
}

// OwnershipCategory buckets a selected-by percentage into its named tier.
func OwnershipCategory(ownership float64) string {
	switch {
	case ownership < 5:
		return "very_low"
	case ownership < 15:
		return "low"
	case ownership < 30:
		return "medium"
	case ownership < 50:
		return "high"
	default:
		return "very_high"
	}
}

// ownershipDifferentialBonus rewards low-owned players in the selection
// draw and penalizes heavily-owned ones.
func ownershipDifferentialBonus(ownership float64) float64 {
	switch OwnershipCategory(ownership) {
	case "very_low":
		return 0.15
	case "low":
		return 0.08
	case "medium":
		return 0.0
	case "high":
		return -0.05
	default:
		return -0.10
	}
}

// SelectionProbability is the chance a player is flagged as randomly
// selected: a momentum-tier base plus the ownership differential bonus,
// clamped to [0.02, 0.60]. No player is ever certain in or certain out.
func SelectionProbability(momentum, ownership float64) float64 {
	var base float64
	switch {
	case momentum >= 0.9:
		base = 0.45
	case momentum >= 0.8:
		base = 0.30
	case momentum >= 0.7:
		base = 0.18
	case momentum >= 0.6:
		base = 0.12
	default:
		base = 0.06
	}

	return math.Max(0.02, math.Min(0.60, base+ownershipDifferentialBonus(ownership)))
}

// MultiObjectiveScore blends momentum, price value, fixture difficulty and
// form into one [0,1] score. A zero form reading is treated as unknown and
// contributes a neutral 0.5.
func MultiObjectiveScore(p types.Player, fixtureScore float64) float64 {
	value := math.Min(1, p.MomentumScore/(math.Max(p.Price, 4)/10))

	form := 0.5
	if p.Form != 0 {
		form = math.Min(1, p.Form/10)
	}

	score := p.MomentumScore*0.4 + value*0.25 + fixtureScore*0.20 + form*0.15
	return round3(clamp01(score))
}

// CaptainScore rates captaincy appeal. Only midfielders and forwards are
// considered; everyone else scores zero.
func CaptainScore(p types.Player) float64 {
	if !p.Position.IsAttacking() {
		return 0
	}

	score := p.MomentumScore*0.4 +
		math.Min(float64(p.TotalPoints)/200, 1)*0.3 +
		math.Min(p.Form/10, 1)*0.2

	if p.Price >= 10 {
		score += 0.05
	}
	if p.Form >= 6 {
		score += 0.1
	}
	return round3(clamp01(score))
}

// TransferPriority rates how urgently a player should be brought in,
// blending momentum, price efficiency, form and a low-ownership bonus.
func TransferPriority(p types.Player) float64 {
	priceEfficiency := p.MomentumScore / (math.Max(p.Price, 4) / 8)

	var ownershipBonus float64
	switch {
	case p.SelectedByPercent < 10:
		ownershipBonus = 0.15
	case p.SelectedByPercent < 20:
		ownershipBonus = 0.08
	}

	score := p.MomentumScore*0.5 +
		priceEfficiency*0.3 +
		math.Min(0.1, p.Form/50) +
		ownershipBonus
	return round3(clamp01(score))
}

// ValueRating rates points-per-price efficiency blended with momentum per
// price. A non-positive price yields zero.
func ValueRating(p types.Player) float64 {
	if p.Price <= 0 {
		return 0
	}

	pointsPerPrice := float64(p.TotalPoints) / p.Price / 30
	momentumPerPrice := p.MomentumScore / (p.Price / 10)

	return round3(clamp01(pointsPerPrice*0.6 + momentumPerPrice*0.4))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
