package ownership

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/davidkorenblit/fpl-assistant/internal/types"
	"github.com/davidkorenblit/fpl-assistant/pkg/logger"
)

// Bracket classifies a player by ownership percentage.
type Bracket string

const (
	BracketTemplate     Bracket = "template"
	BracketPopular      Bracket = "popular"
	BracketMedium       Bracket = "medium"
	BracketDifferential Bracket = "differential"
	BracketContrarian   Bracket = "contrarian"
)

// baseModifiers reward low-owned picks and penalize template ones.
var baseModifiers = map[Bracket]float64{
	BracketTemplate:     -0.12,
	BracketPopular:      -0.06,
	BracketMedium:       0.0,
	BracketDifferential: 0.08,
	BracketContrarian:   0.15,
}

var riskLevels = map[Bracket]string{
	BracketTemplate:     "high",
	BracketPopular:      "medium",
	BracketMedium:       "low",
	BracketDifferential: "medium",
	BracketContrarian:   "high",
}

var recommendations = map[Bracket]string{
	BracketTemplate:     "Template pick, little rank upside",
	BracketPopular:      "Popular pick, safe but limited edge",
	BracketMedium:       "Balanced ownership, no adjustment",
	BracketDifferential: "Differential with real rank upside",
	BracketContrarian:   "Contrarian punt, high risk high reward",
}

// idealRatios is the target ownership mix for a balanced squad.
var idealRatios = map[Bracket]float64{
	BracketTemplate:     0.20,
	BracketPopular:      0.20,
	BracketMedium:       0.40,
	BracketDifferential: 0.15,
	BracketContrarian:   0.05,
}

// Adjustment is the fully resolved ownership adjustment for one player.
type Adjustment struct {
	Bracket            Bracket `json:"bracket"`
	BaseModifier       float64 `json:"base_modifier"`
	PositionMultiplier float64 `json:"position_multiplier"`
	GameweekMultiplier float64 `json:"gameweek_multiplier"`
	FinalModifier      float64 `json:"final_modifier"`
	RiskLevel          string  `json:"risk_level"`
	Recommendation     string  `json:"recommendation"`
}

// BalanceReport describes how a squad's ownership mix compares with the
// ideal distribution.
type BalanceReport struct {
	Counts       map[Bracket]int     `json:"counts"`
	Ratios       map[Bracket]float64 `json:"ratios"`
	IdealRatios  map[Bracket]float64 `json:"ideal_ratios"`
	BalanceScore float64             `json:"balance_score"`
	RiskProfile  string              `json:"risk_profile"`
}

// BracketFor classifies an ownership percentage. Boundaries are inclusive
// on the lower side of each bracket.
func BracketFor(ownership float64) Bracket {
	switch {
	case ownership >= 50:
		return BracketTemplate
	case ownership >= 30:
		return BracketPopular
	case ownership >= 15:
		return BracketMedium
	case ownership >= 5:
		return BracketDifferential
	default:
		return BracketContrarian
	}
}

// PositionMultiplier scales the ownership modifier by position. Attacking
// positions carry more differential upside than goalkeepers.
func PositionMultiplier(pos types.Position) float64 {
	switch pos {
	case types.PositionGK:
		return 0.6
	case types.PositionDEF:
		return 0.8
	case types.PositionMID:
		return 1.0
	case types.PositionFWD:
		return 1.2
	}
	return 1.0
}

// SeasonPhaseMultiplier reflects when differentials matter in a season:
// muted early, amplified in the run-in.
func SeasonPhaseMultiplier(gameweek int) float64 {
	switch {
	case gameweek <= 6:
		return 0.8
	case gameweek <= 25:
		return 1.0
	case gameweek <= 35:
		return 1.3
	default:
		return 1.5
	}
}

// CalculateAdjustment resolves the full ownership adjustment for a player at
// a given gameweek. The season-phase multiplier applies only to differential
// and contrarian picks; template penalties stay constant across the season.
// The final modifier is clamped to [-0.2, +0.25].
func CalculateAdjustment(ownership float64, pos types.Position, gameweek int) Adjustment {
	bracket := BracketFor(ownership)
	base := baseModifiers[bracket]
	posMult := PositionMultiplier(pos)
	gwMult := SeasonPhaseMultiplier(gameweek)

	final := base * posMult
	if bracket == BracketDifferential || bracket == BracketContrarian {
		final *= gwMult
	}
	final = math.Max(-0.2, math.Min(0.25, final))

	return Adjustment{
		Bracket:            bracket,
		BaseModifier:       base,
		PositionMultiplier: posMult,
		GameweekMultiplier: gwMult,
		FinalModifier:      final,
		RiskLevel:          riskLevels[bracket],
		Recommendation:     recommendations[bracket],
	}
}

// AnalyzeSquadBalance compares a squad's ownership mix against the ideal
// distribution. The balance score is 1 for a perfect match and decays with
// the total absolute deviation across brackets.
func AnalyzeSquadBalance(players []types.Player) BalanceReport {
	counts := make(map[Bracket]int, len(idealRatios))
	for _, p := range players {
		counts[BracketFor(p.SelectedByPercent)]++
	}

	ratios := make(map[Bracket]float64, len(idealRatios))
	totalDeviation := 0.0
	highRisk := 0
	for bracket, ideal := range idealRatios {
		ratio := 0.0
		if len(players) > 0 {
			ratio = float64(counts[bracket]) / float64(len(players))
		}
		ratios[bracket] = ratio
		totalDeviation += math.Abs(ratio - ideal)
		if riskLevels[bracket] == "high" {
			highRisk += counts[bracket]
		}
	}

	score := math.Max(0, 1-totalDeviation/2)

	profile := "balanced"
	switch {
	case len(players) == 0:
		profile = "empty"
	case float64(highRisk)/float64(len(players)) > 0.5:
		profile = "aggressive"
	case counts[BracketDifferential]+counts[BracketContrarian] == 0:
		profile = "conservative"
	}

	report := BalanceReport{
		Counts:       counts,
		Ratios:       ratios,
		IdealRatios:  idealRatios,
		BalanceScore: math.Round(score*1000) / 1000,
		RiskProfile:  profile,
	}

	logger.WithComponent("ownership").WithFields(logrus.Fields{
		"players":       len(players),
		"balance_score": report.BalanceScore,
		"risk_profile":  report.RiskProfile,
	}).Debug("Squad ownership balance analyzed")

	return report
}
