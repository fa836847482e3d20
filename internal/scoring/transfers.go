package scoring

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/davidkorenblit/fpl-assistant/internal/types"
)

const (
	captainOptionsLimit  = 5
	transferTargetsLimit = 10

	// transferMomentumFloor filters out candidates not worth a transfer.
	transferMomentumFloor = 0.6
)

// CaptainOptions ranks the best captaincy picks from a player pool.
// Attacking players with real momentum are preferred; when none qualify the
// whole attacking pool is considered. Returns at most five options.
func (e *Engine) CaptainOptions(players []types.Player) []types.ScoredPlayer {
	attacking := make([]types.Player, 0, len(players))
	inForm := make([]types.Player, 0, len(players))
	for _, p := range players {
		if !p.Position.IsAttacking() {
			continue
		}
		attacking = append(attacking, p)
		if p.MomentumScore >= 0.5 {
			inForm = append(inForm, p)
		}
	}

	pool := inForm
	if len(pool) == 0 {
		pool = attacking
	}

	scored := e.ScoreAll(pool)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].CaptainScore > scored[j].CaptainScore
	})

	if len(scored) > captainOptionsLimit {
		scored = scored[:captainOptionsLimit]
	}
	return scored
}

// TransferTargets proposes replacements for a player being sold. The real
// budget is the free budget plus the outgoing player's sale price. Candidates
// must be outside the current squad, affordable, in form, and positionally
// compatible; midfielders and forwards are interchangeable.
func (e *Engine) TransferTargets(selling types.Player, pool []types.Player, squad []types.Player, freeBudget float64) types.TransferPlan {
	realBudget := freeBudget + selling.Price

	inSquad := make(map[int]bool, len(squad))
	for _, p := range squad {
		inSquad[p.ID] = true
	}

	targets := make([]types.TransferTarget, 0, transferTargetsLimit)
	for _, candidate := range pool {
		if inSquad[candidate.ID] || candidate.ID == selling.ID {
			continue
		}
		if candidate.Price > realBudget {
			continue
		}
		if candidate.MomentumScore < transferMomentumFloor {
			continue
		}
		if !positionsCompatible(selling.Position, candidate.Position) {
			continue
		}

		scored := e.Score(candidate)
		if !scored.Selected && scored.MultiObjectiveScore < 0.7 {
			continue
		}

		targets = append(targets, types.TransferTarget{
			ScoredPlayer:    scored,
			Comparison:      ComparePlayers(candidate, selling),
			PriceDifference: candidate.Price - selling.Price,
			BudgetRemaining: realBudget - candidate.Price,
		})
	}

	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].TransferPriority > targets[j].TransferPriority
	})
	if len(targets) > transferTargetsLimit {
		targets = targets[:transferTargetsLimit]
	}

	e.logger.WithFields(logrus.Fields{
		"selling":     selling.Name,
		"real_budget": realBudget,
		"targets":     len(targets),
	}).Debug("Transfer targets ranked")

	return types.TransferPlan{
		SellingPlayer: selling,
		RealBudget:    realBudget,
		Targets:       targets,
	}
}

// positionsCompatible reports whether incoming can replace outgoing.
// Midfielders and forwards cover for each other; keepers and defenders only
// for their own position.
func positionsCompatible(outgoing, incoming types.Position) bool {
	if outgoing == incoming {
		return true
	}
	return outgoing.IsAttacking() && incoming.IsAttacking()
}

// ComparePlayers evaluates buying candidate to replace incumbent.
func ComparePlayers(candidate, incumbent types.Player) types.PlayerComparison {
	momentumDiff := candidate.MomentumScore - incumbent.MomentumScore
	priceDiff := candidate.Price - incumbent.Price

	return types.PlayerComparison{
		MomentumImprovement: round3(momentumDiff),
		PointsDifference:    candidate.TotalPoints - incumbent.TotalPoints,
		FormImprovement:     round3(candidate.Form - incumbent.Form),
		Recommendation:      transferRecommendation(momentumDiff, priceDiff),
	}
}

func transferRecommendation(momentumDiff, priceDiff float64) string {
	switch {
	case momentumDiff > 0.15:
		return "EXCELLENT UPGRADE"
	case momentumDiff > 0.05:
		return "GOOD UPGRADE"
	case momentumDiff > -0.05:
		if priceDiff < -1.0 {
			return "SIDEWAYS MOVE - saves money"
		}
		return "SIDEWAYS MOVE - slight upgrade"
	default:
		return "QUESTIONABLE"
	}
}

// SellCandidates ranks squad members by how advisable it is to sell them.
// Sell priority inverts the blend of multi-objective score and value rating,
// so the weakest asset comes first.
func (e *Engine) SellCandidates(squad []types.Player) []types.SellCandidate {
	candidates := make([]types.SellCandidate, 0, len(squad))
	for _, p := range squad {
		scored := e.Score(p)
		priority := round3(clamp01(1 - (scored.MultiObjectiveScore*0.7 + scored.ValueRating*0.3)))

		candidates = append(candidates, types.SellCandidate{
			Analysis:     scored,
			SellPriority: priority,
			Reasoning:    sellReasoning(scored),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SellPriority > candidates[j].SellPriority
	})
	return candidates
}

func sellReasoning(s types.ScoredPlayer) string {
	switch {
	case s.Player.MomentumScore < 0.4:
		return "Momentum has collapsed"
	case s.ValueRating < 0.3:
		return "Poor value for price"
	case s.MultiObjectiveScore < 0.5:
		return "Better options available at this price"
	default:
		return "Performing adequately, low sell urgency"
	}
}

// TopPlayers returns the topN players by multi-objective score.
func (e *Engine) TopPlayers(players []types.Player, topN int) []types.ScoredPlayer {
	scored := e.ScoreAll(players)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].MultiObjectiveScore > scored[j].MultiObjectiveScore
	})
	if topN > 0 && len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}

// PositionLeaders returns the best player per position by multi-objective
// score, keyed by position.
func (e *Engine) PositionLeaders(players []types.Player) map[types.Position]types.ScoredPlayer {
	leaders := make(map[types.Position]types.ScoredPlayer, len(types.AllPositions))
	for _, scored := range e.ScoreAll(players) {
		pos := scored.Player.Position
		if current, ok := leaders[pos]; !ok || scored.MultiObjectiveScore > current.MultiObjectiveScore {
			leaders[pos] = scored
		}
	}
	return leaders
}

// ValuePicks returns the topN players by value rating, skipping players with
// no recorded points.
func (e *Engine) ValuePicks(players []types.Player, topN int) []types.ScoredPlayer {
	pool := make([]types.Player, 0, len(players))
	for _, p := range players {
		if p.TotalPoints > 0 && p.Price > 0 {
			pool = append(pool, p)
		}
	}

	scored := e.ScoreAll(pool)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].ValueRating > scored[j].ValueRating
	})
	if topN > 0 && len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}
