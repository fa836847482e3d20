package fixtures

import (
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/davidkorenblit/fpl-assistant/internal/cache"
	"github.com/davidkorenblit/fpl-assistant/internal/types"
	"github.com/davidkorenblit/fpl-assistant/pkg/logger"
)

const (
	// defaultDifficulty is substituted for missing difficulty ratings.
	defaultDifficulty = 3

	// strengthDivisor scales home/away strength differences; the typical
	// spread between home and away overall ratings is ~200.
	strengthDivisor = 200.0

	unknownTeamName = "Unknown"
)

// Engine analyzes fixture difficulty for teams over a rolling window of
// upcoming gameweeks. Results are cached per partition with a shared TTL;
// entries expire by time only, never by underlying data changes.
type Engine struct {
	logger       *logrus.Entry
	fixtures     []types.Fixture
	teams        map[int]types.Team
	currentRound int

	analysisCache  *cache.TimedCache[types.FixtureAnalysis]
	batchCache     *cache.TimedCache[map[int]types.FixtureAnalysis]
	gameweekCache  *cache.TimedCache[types.GameweekFixtures]
	advantageCache *cache.TimedCache[float64]
}

// TeamFixtureRank is one row of a best/worst fixture-run ranking.
type TeamFixtureRank struct {
	TeamID        int     `json:"team_id"`
	TeamName      string  `json:"team_name"`
	FixtureScore  float64 `json:"fixture_score"`
	FixturesCount int     `json:"fixtures_count"`
	DGWBonus      float64 `json:"dgw_bonus"`
	HomeRatio     float64 `json:"home_ratio"`
}

// NewEngine builds an engine from raw fixture and team records. Fixtures are
// normalized up front: finished games dropped, missing numerics defaulted,
// invalid rows removed, remainder sorted by round.
func NewEngine(rawFixtures []types.Fixture, teams []types.Team, ttl time.Duration) *Engine {
	e := &Engine{
		logger:         logger.WithComponent("fixture_engine"),
		fixtures:       Normalize(rawFixtures),
		teams:          make(map[int]types.Team, len(teams)),
		analysisCache:  cache.New[types.FixtureAnalysis]("fixtures", ttl),
		batchCache:     cache.New[map[int]types.FixtureAnalysis]("batch_analysis", ttl),
		gameweekCache:  cache.New[types.GameweekFixtures]("gameweek", ttl),
		advantageCache: cache.New[float64]("teams", ttl),
	}

	for _, t := range teams {
		if t.ID <= 0 {
			continue
		}
		e.teams[t.ID] = t
	}

	e.currentRound = DetectCurrentRound(rawFixtures)

	e.logger.WithFields(logrus.Fields{
		"fixtures_loaded": len(e.fixtures),
		"teams_loaded":    len(e.teams),
		"current_round":   e.currentRound,
	}).Info("Fixture engine ready")

	return e
}

// Normalize validates raw fixture rows the way the ingestion layer is
// expected to: finished fixtures are dropped from forward-looking analysis,
// missing difficulty ratings default to 3 and missing rounds to 1, rows with
// non-positive team ids or rounds are removed, and the result is sorted by
// round (stable, preserving input order within a round).
func Normalize(raw []types.Fixture) []types.Fixture {
	cleaned := make([]types.Fixture, 0, len(raw))
	for _, f := range raw {
		if f.Finished {
			continue
		}
		if f.Event == 0 {
			f.Event = 1
		}
		if f.TeamHDifficulty < 1 || f.TeamHDifficulty > 5 {
			f.TeamHDifficulty = defaultDifficulty
		}
		if f.TeamADifficulty < 1 || f.TeamADifficulty > 5 {
			f.TeamADifficulty = defaultDifficulty
		}
		if f.TeamH <= 0 || f.TeamA <= 0 || f.Event < 1 {
			continue
		}
		cleaned = append(cleaned, f)
	}

	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Event < cleaned[j].Event
	})
	return cleaned
}

// DetectCurrentRound returns the earliest round among unfinished fixtures.
// With every fixture played it is the last finished round plus one; with no
// fixtures at all it is 1.
func DetectCurrentRound(fixtures []types.Fixture) int {
	round := 0
	lastFinished := 0
	for _, f := range fixtures {
		if f.Finished {
			if f.Event > lastFinished {
				lastFinished = f.Event
			}
			continue
		}
		if round == 0 || f.Event < round {
			round = f.Event
		}
	}
	if round > 0 {
		return round
	}
	if lastFinished > 0 {
		return lastFinished + 1
	}
	return 1
}

// CurrentRound reports the round the engine considers "now".
func (e *Engine) CurrentRound() int {
	return e.currentRound
}

// KnownTeams returns the ids of all teams the engine has reference data for.
func (e *Engine) KnownTeams() []int {
	ids := make([]int, 0, len(e.teams))
	for id := range e.teams {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// NormalizeDifficulty maps the FPL 1-5 difficulty scale (1 = easiest) onto
// [0,1] where 1 means the easiest possible fixture: raw 1 -> 1.0, raw 5 -> 0.25.
func NormalizeDifficulty(raw int) float64 {
	return clamp01((6.0 - float64(raw)) / 4.0)
}

// AnalyzeTeamFixtures computes the difficulty picture for one team over the
// next lookaheadRounds rounds starting at the current round. A team with no
// fixtures in the window gets a neutral result rather than an error.
func (e *Engine) AnalyzeTeamFixtures(teamID, lookaheadRounds int) types.FixtureAnalysis {
	if lookaheadRounds < 1 {
		lookaheadRounds = 1
	}

	key := cache.NamedKey(map[string]any{
		"team":      teamID,
		"lookahead": lookaheadRounds,
		"round":     e.currentRound,
	})
	if cached, ok := e.analysisCache.Get(key); ok {
		return cached
	}

	window := e.windowFixtures(teamID, lookaheadRounds)
	result := e.analyzeWindow(teamID, window, lookaheadRounds)
	e.analysisCache.Set(key, result)
	return result
}

// windowFixtures selects fixtures with currentRound <= event < currentRound+lookahead
// where the team plays on either side. teamID <= 0 matches all teams.
func (e *Engine) windowFixtures(teamID, lookaheadRounds int) []types.Fixture {
	end := e.currentRound + lookaheadRounds
	window := make([]types.Fixture, 0, lookaheadRounds)
	for _, f := range e.fixtures {
		if f.Event < e.currentRound || f.Event >= end {
			continue
		}
		if teamID > 0 && f.TeamH != teamID && f.TeamA != teamID {
			continue
		}
		window = append(window, f)
	}
	return window
}

func (e *Engine) analyzeWindow(teamID int, window []types.Fixture, lookaheadRounds int) types.FixtureAnalysis {
	if len(window) == 0 {
		return e.neutralResult(teamID)
	}

	summaries := make([]types.FixtureSummary, 0, len(window))
	difficulties := make([]float64, 0, len(window))
	roundCounts := make(map[int]int, len(window))
	homeGames := 0

	for _, f := range window {
		isHome := f.TeamH == teamID
		opponentID := f.TeamH
		difficulty := f.TeamADifficulty
		venue := "A"
		if isHome {
			opponentID = f.TeamA
			difficulty = f.TeamHDifficulty
			venue = "H"
			homeGames++
		}

		normalized := NormalizeDifficulty(difficulty)
		difficulties = append(difficulties, normalized)
		roundCounts[f.Event]++

		summaries = append(summaries, types.FixtureSummary{
			Gameweek:             f.Event,
			OpponentID:           opponentID,
			OpponentName:         e.teamName(opponentID),
			IsHome:               isHome,
			DifficultyRaw:        difficulty,
			DifficultyNormalized: round3(normalized),
			Venue:                venue,
		})
	}

	doubleGameweeks := 0
	for _, count := range roundCounts {
		if count > 1 {
			doubleGameweeks++
		}
	}

	avgDifficulty := stat.Mean(difficulties, nil)
	homeRatio := float64(homeGames) / float64(len(window))
	dgwBonus := math.Min(0.3, float64(doubleGameweeks)*0.15)

	return types.FixtureAnalysis{
		TeamID:                 teamID,
		TeamName:               e.teamName(teamID),
		GameweeksAnalyzed:      lookaheadRounds,
		FixturesCount:          len(window),
		UpcomingFixtures:       summaries,
		AvgDifficulty:          round3(avgDifficulty),
		HomeGamesRatio:         round3(homeRatio),
		DoubleGameweekCount:    doubleGameweeks,
		DoubleGameweekBonus:    round3(dgwBonus),
		FixtureDifficultyScore: round3(avgDifficulty),
	}
}

// neutralResult is the defined fallback when a team has no fixtures in the
// window: neutral difficulty, neutral home ratio, no bonus.
func (e *Engine) neutralResult(teamID int) types.FixtureAnalysis {
	return types.FixtureAnalysis{
		TeamID:                 teamID,
		TeamName:               e.teamName(teamID),
		UpcomingFixtures:       []types.FixtureSummary{},
		AvgDifficulty:          0.5,
		HomeGamesRatio:         0.5,
		FixtureDifficultyScore: 0.5,
	}
}

// BatchAnalyzeAllTeams analyzes every known team at once, filtering the
// fixture set a single time and reusing it. The per-team results are
// identical to calling AnalyzeTeamFixtures for each team individually;
// teams without fixtures in the window get the neutral result.
func (e *Engine) BatchAnalyzeAllTeams(lookaheadRounds int) map[int]types.FixtureAnalysis {
	if lookaheadRounds < 1 {
		lookaheadRounds = 1
	}

	key := cache.NamedKey(map[string]any{
		"batch":     "all",
		"lookahead": lookaheadRounds,
		"round":     e.currentRound,
	})
	if cached, ok := e.batchCache.Get(key); ok {
		return cached
	}

	relevant := e.windowFixtures(0, lookaheadRounds)

	analyses := make(map[int]types.FixtureAnalysis, len(e.teams))
	for teamID := range e.teams {
		teamWindow := make([]types.Fixture, 0, lookaheadRounds)
		for _, f := range relevant {
			if f.TeamH == teamID || f.TeamA == teamID {
				teamWindow = append(teamWindow, f)
			}
		}
		analyses[teamID] = e.analyzeWindow(teamID, teamWindow, lookaheadRounds)
	}

	e.batchCache.Set(key, analyses)

	e.logger.WithFields(logrus.Fields{
		"teams_analyzed": len(analyses),
		"lookahead":      lookaheadRounds,
	}).Debug("Batch fixture analysis completed")

	return analyses
}

// GameweekFixtures lists the full slate for one round with resolved team
// names; unresolvable team ids are reported as "Unknown".
func (e *Engine) GameweekFixtures(round int) types.GameweekFixtures {
	key := cache.Key("gameweek", round)
	if cached, ok := e.gameweekCache.Get(key); ok {
		return cached
	}

	list := make([]types.GameweekFixture, 0)
	for _, f := range e.fixtures {
		if f.Event != round {
			continue
		}
		list = append(list, types.GameweekFixture{
			HomeTeam:       e.teamName(f.TeamH),
			AwayTeam:       e.teamName(f.TeamA),
			KickoffTime:    f.KickoffTime,
			HomeDifficulty: f.TeamHDifficulty,
			AwayDifficulty: f.TeamADifficulty,
		})
	}

	result := types.GameweekFixtures{
		Gameweek:   round,
		Fixtures:   list,
		TotalGames: len(list),
	}
	e.gameweekCache.Set(key, result)
	return result
}

// HomeAwayAdvantage derives a [0.25, 0.75] advantage figure from the gap
// between a team's home and away overall-strength ratings, centered at 0.5.
// Unknown teams are neutral.
func (e *Engine) HomeAwayAdvantage(teamID int, isHome bool) float64 {
	key := cache.Key("advantage", teamID, isHome)
	if cached, ok := e.advantageCache.Get(key); ok {
		return cached
	}

	team, ok := e.teams[teamID]
	if !ok {
		e.advantageCache.Set(key, 0.5)
		return 0.5
	}

	homeStrength := float64(team.StrengthOverallHome)
	awayStrength := float64(team.StrengthOverallAway)
	if !isHome {
		homeStrength, awayStrength = awayStrength, homeStrength
	}

	diff := (homeStrength - awayStrength) / strengthDivisor
	advantage := round3(0.5 + math.Max(-0.25, math.Min(0.25, diff)))

	e.advantageCache.Set(key, advantage)
	return advantage
}

// PositionFixtureImpact scales how strongly fixture difficulty affects a
// position: forwards benefit most from an easy run, goalkeepers least.
func PositionFixtureImpact(pos types.Position) float64 {
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

// IntegrateWithMomentum boosts or dampens a momentum score by the team's
// upcoming fixture picture. The combined fixture bonus is capped to
// [-0.2, +0.3] before applying and the result stays in [0,1].
func (e *Engine) IntegrateWithMomentum(teamID int, pos types.Position, momentum float64) float64 {
	if momentum <= 0 || teamID <= 0 {
		return momentum
	}

	analysis := e.AnalyzeTeamFixtures(teamID, 5)

	homeAdvantage := e.HomeAwayAdvantage(teamID, true)
	homeBonus := (analysis.HomeGamesRatio - 0.5) * (homeAdvantage - 0.5) * 0.2

	bonus := ((analysis.FixtureDifficultyScore-0.5)*0.15 +
		homeBonus +
		analysis.DoubleGameweekBonus) * PositionFixtureImpact(pos)
	bonus = math.Max(-0.2, math.Min(0.3, bonus))

	return round4(clamp01(momentum * (1 + bonus)))
}

// BestFixtureTeams ranks teams by fixture score plus double-gameweek bonus,
// best run first. Teams with no fixtures in the window are excluded.
func (e *Engine) BestFixtureTeams(lookaheadRounds, topN int) []TeamFixtureRank {
	ranks := e.rankTeams(lookaheadRounds)
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].FixtureScore+ranks[i].DGWBonus > ranks[j].FixtureScore+ranks[j].DGWBonus
	})
	return truncateRanks(ranks, topN)
}

// WorstFixtureTeams ranks teams by fixture score, hardest run first.
func (e *Engine) WorstFixtureTeams(lookaheadRounds, topN int) []TeamFixtureRank {
	ranks := e.rankTeams(lookaheadRounds)
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].FixtureScore < ranks[j].FixtureScore
	})
	return truncateRanks(ranks, topN)
}

func (e *Engine) rankTeams(lookaheadRounds int) []TeamFixtureRank {
	analyses := e.BatchAnalyzeAllTeams(lookaheadRounds)

	ids := make([]int, 0, len(analyses))
	for id := range analyses {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	ranks := make([]TeamFixtureRank, 0, len(ids))
	for _, id := range ids {
		a := analyses[id]
		if a.FixturesCount == 0 {
			continue
		}
		ranks = append(ranks, TeamFixtureRank{
			TeamID:        a.TeamID,
			TeamName:      a.TeamName,
			FixtureScore:  a.FixtureDifficultyScore,
			FixturesCount: a.FixturesCount,
			DGWBonus:      a.DoubleGameweekBonus,
			HomeRatio:     a.HomeGamesRatio,
		})
	}
	return ranks
}

func truncateRanks(ranks []TeamFixtureRank, topN int) []TeamFixtureRank {
	if topN > 0 && len(ranks) > topN {
		return ranks[:topN]
	}
	return ranks
}

// CacheStats reports live-entry counts per cache partition.
func (e *Engine) CacheStats() []cache.Stats {
	return []cache.Stats{
		e.analysisCache.Stats(),
		e.batchCache.Stats(),
		e.gameweekCache.Stats(),
		e.advantageCache.Stats(),
	}
}

// EvictExpired sweeps every cache partition and returns the total evicted.
func (e *Engine) EvictExpired() int {
	return e.analysisCache.EvictExpired() +
		e.batchCache.EvictExpired() +
		e.gameweekCache.EvictExpired() +
		e.advantageCache.EvictExpired()
}

// ClearCache drops all cached analysis.
func (e *Engine) ClearCache() {
	e.analysisCache.Clear()
	e.batchCache.Clear()
	e.gameweekCache.Clear()
	e.advantageCache.Clear()
}

func (e *Engine) teamName(teamID int) string {
	if team, ok := e.teams[teamID]; ok {
		return team.Name
	}
	return unknownTeamName
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
