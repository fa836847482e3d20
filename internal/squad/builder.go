package squad

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/davidkorenblit/fpl-assistant/internal/cache"
	"github.com/davidkorenblit/fpl-assistant/internal/types"
	"github.com/davidkorenblit/fpl-assistant/pkg/logger"
)

const (
	// maxPerTeam is the league rule: at most three squad members per club.
	maxPerTeam = 3

	// minPlayingChance filters out players flagged as injury doubts.
	minPlayingChance = 75
)

// Formation maps positions to required player counts.
type Formation map[types.Position]int

// DefaultFormation is the 4-4-2 starting eleven.
var DefaultFormation = Formation{
	types.PositionGK:  1,
	types.PositionDEF: 4,
	types.PositionMID: 4,
	types.PositionFWD: 2,
}

// DefaultBench completes the 15-man squad: one backup per line.
var DefaultBench = Formation{
	types.PositionGK:  1,
	types.PositionDEF: 1,
	types.PositionMID: 1,
	types.PositionFWD: 1,
}

// positionOrder fixes the fill order so identical inputs always produce
// identical squads.
var positionOrder = []types.Position{
	types.PositionGK,
	types.PositionDEF,
	types.PositionMID,
	types.PositionFWD,
}

// Builder assembles 15-man squads under budget, formation and per-team
// constraints. Building is deterministic: the same pool and budget always
// yield the same squad.
type Builder struct {
	budget    float64
	formation Formation
	bench     Formation
	cache     *cache.TimedCache[types.Squad]
	logger    *logrus.Entry
}

// NewBuilder creates a builder for the default 4-4-2 plus bench layout.
func NewBuilder(budget float64, ttl time.Duration) *Builder {
	return &Builder{
		budget:    budget,
		formation: DefaultFormation,
		bench:     DefaultBench,
		cache:     cache.New[types.Squad]("squads", ttl),
		logger:    logger.WithComponent("squad_builder"),
	}
}

// Budget returns the configured squad budget.
func (b *Builder) Budget() float64 {
	return b.budget
}

// BuildSquad selects a 15-man squad from the pool. Players must have a
// positive price and at least a 75% chance of playing. Candidates are ranked
// by momentum per price; a greedy pass fills each position, then a repair
// pass plugs remaining holes with the cheapest players that still fit the
// budget and the per-team cap. A squad that cannot satisfy every constraint
// is returned with Valid false rather than as an error.
func (b *Builder) BuildSquad(pool []types.Player, budgetOverride float64) types.Squad {
	budget := b.budget
	if budgetOverride > 0 {
		budget = budgetOverride
	}

	key := b.poolKey(pool, budget)
	if cached, ok := b.cache.Get(key); ok {
		return cached
	}

	buildID := uuid.New().String()
	log := logger.WithBuildContext(buildID, budget)

	eligible := rankEligible(pool)

	byPosition := make(map[types.Position][]types.Player, len(positionOrder))
	for _, p := range eligible {
		byPosition[p.Position] = append(byPosition[p.Position], p)
	}

	state := &buildState{
		budget:    budget,
		usedTeams: make(map[string]int),
		usedIDs:   make(map[int]bool),
	}

	startingXI := b.fillLines(byPosition, b.formation, state)
	bench := b.fillLines(byPosition, b.bench, state)

	squad := types.Squad{
		ID:         buildID,
		StartingXI: startingXI,
		Bench:      bench,
		TotalCost:  round1(state.totalCost),
		Formation:  formationString(startingXI),
	}
	squad.Captain = pickCaptain(squad)
	squad.Valid = validate(squad, budget)

	log.WithFields(logrus.Fields{
		"starting_xi": len(squad.StartingXI),
		"bench":       len(squad.Bench),
		"total_cost":  squad.TotalCost,
		"valid":       squad.Valid,
	}).Info("Squad build completed")

	b.cache.Set(key, squad)
	return squad
}

type buildState struct {
	budget    float64
	totalCost float64
	usedTeams map[string]int
	usedIDs   map[int]bool
}

func (s *buildState) fits(p types.Player) bool {
	if s.usedIDs[p.ID] {
		return false
	}
	if s.usedTeams[p.TeamName] >= maxPerTeam {
		return false
	}
	return s.totalCost+p.Price <= s.budget
}

func (s *buildState) take(p types.Player) {
	s.usedIDs[p.ID] = true
	s.usedTeams[p.TeamName]++
	s.totalCost += p.Price
}

// fillLines fills every position of a formation in fixed order. Greedy takes
// the best-ranked fitting players; any shortfall triggers a repair pass that
// takes the cheapest remaining fits.
func (b *Builder) fillLines(byPosition map[types.Position][]types.Player, formation Formation, state *buildState) []types.Player {
	picked := make([]types.Player, 0, 11)
	for _, pos := range positionOrder {
		need := formation[pos]
		if need == 0 {
			continue
		}
		picked = append(picked, b.fillPosition(byPosition[pos], need, state)...)
	}
	return picked
}

func (b *Builder) fillPosition(candidates []types.Player, need int, state *buildState) []types.Player {
	picked := make([]types.Player, 0, need)

	for _, p := range candidates {
		if len(picked) == need {
			break
		}
		if state.fits(p) {
			state.take(p)
			picked = append(picked, p)
		}
	}

	if len(picked) < need {
		picked = append(picked, b.repairPosition(candidates, need-len(picked), state)...)
	}
	return picked
}

// repairPosition takes the cheapest remaining candidates that satisfy the
// budget and the per-team cap.
func (b *Builder) repairPosition(candidates []types.Player, missing int, state *buildState) []types.Player {
	cheapest := make([]types.Player, len(candidates))
	copy(cheapest, candidates)
	sort.SliceStable(cheapest, func(i, j int) bool {
		return cheapest[i].Price < cheapest[j].Price
	})

	picked := make([]types.Player, 0, missing)
	for _, p := range cheapest {
		if len(picked) == missing {
			break
		}
		if state.fits(p) {
			state.take(p)
			picked = append(picked, p)
		}
	}

	if len(picked) < missing {
		b.logger.WithFields(logrus.Fields{
			"still_missing": missing - len(picked),
			"budget_used":   round1(state.totalCost),
		}).Warn("Could not fill position within constraints")
	}
	return picked
}

// rankEligible filters out doubtful or priceless players and ranks the rest
// by momentum per price, best first. The sort is stable so equal candidates
// keep their pool order.
func rankEligible(pool []types.Player) []types.Player {
	eligible := make([]types.Player, 0, len(pool))
	for _, p := range pool {
		if p.Price <= 0 {
			continue
		}
		if p.ChanceOfPlaying < minPlayingChance {
			continue
		}
		eligible = append(eligible, p)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return valueScore(eligible[i]) > valueScore(eligible[j])
	})
	return eligible
}

func valueScore(p types.Player) float64 {
	return p.MomentumScore / math.Max(p.Price, 4)
}

// pickCaptain prefers the starting midfielder or forward with the best
// momentum plus season-points blend; if the starting eleven has no attackers
// it falls back to the highest-momentum player in the whole squad.
func pickCaptain(s types.Squad) *types.Player {
	var best *types.Player
	bestScore := math.Inf(-1)
	for i := range s.StartingXI {
		p := &s.StartingXI[i]
		if !p.Position.IsAttacking() {
			continue
		}
		score := p.MomentumScore + float64(p.TotalPoints)/200
		if score > bestScore {
			best = p
			bestScore = score
		}
	}
	if best != nil {
		captain := *best
		return &captain
	}

	all := s.Players()
	for i := range all {
		if best == nil || all[i].MomentumScore > best.MomentumScore {
			best = &all[i]
		}
	}
	if best == nil {
		return nil
	}
	captain := *best
	return &captain
}

// validate checks the full-squad shape (2 GK, 5 DEF, 5 MID, 3 FWD), the
// per-team cap, and the budget.
func validate(s types.Squad, budget float64) bool {
	required := map[types.Position]int{
		types.PositionGK:  2,
		types.PositionDEF: 5,
		types.PositionMID: 5,
		types.PositionFWD: 3,
	}

	counts := make(map[types.Position]int)
	teams := make(map[string]int)
	for _, p := range s.Players() {
		counts[p.Position]++
		teams[p.TeamName]++
	}

	for pos, need := range required {
		if counts[pos] != need {
			return false
		}
	}
	for _, n := range teams {
		if n > maxPerTeam {
			return false
		}
	}
	return s.TotalCost <= budget
}

// formationString renders the starting eleven's outfield shape, e.g. "4-4-2".
func formationString(startingXI []types.Player) string {
	counts := make(map[types.Position]int)
	for _, p := range startingXI {
		counts[p.Position]++
	}
	return fmt.Sprintf("%d-%d-%d",
		counts[types.PositionDEF],
		counts[types.PositionMID],
		counts[types.PositionFWD],
	)
}

// poolKey derives a deterministic cache key from the candidate pool and
// budget. Pool order matters for tie-breaking, so it is part of the key.
func (b *Builder) poolKey(pool []types.Player, budget float64) string {
	args := make([]any, 0, len(pool)+1)
	args = append(args, budget)
	for _, p := range pool {
		args = append(args, p.ID)
	}
	return cache.Key(args...)
}

// CacheStats reports the squad cache snapshot.
func (b *Builder) CacheStats() cache.Stats {
	return b.cache.Stats()
}

// EvictExpired sweeps the squad cache.
func (b *Builder) EvictExpired() int {
	return b.cache.EvictExpired()
}

// ClearCache drops all cached squads.
func (b *Builder) ClearCache() {
	b.cache.Clear()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
