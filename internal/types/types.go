package types

// Position is one of the four FPL player positions.
type Position string

const (
	PositionGK  Position = "GK"
	PositionDEF Position = "DEF"
	PositionMID Position = "MID"
	PositionFWD Position = "FWD"
)

// AllPositions lists the valid positions in formation order.
var AllPositions = []Position{PositionGK, PositionDEF, PositionMID, PositionFWD}

// Valid reports whether p is one of the four known positions.
func (p Position) Valid() bool {
	switch p {
	case PositionGK, PositionDEF, PositionMID, PositionFWD:
		return true
	}
	return false
}

// IsAttacking reports whether the position is eligible for captaincy scoring.
func (p Position) IsAttacking() bool {
	return p == PositionMID || p == PositionFWD
}

// Player is a normalized player record supplied by the data-ingestion layer.
// It is treated as immutable for the lifetime of a session.
type Player struct {
	ID                int      `json:"player_id"`
	Name              string   `json:"name"`
	Position          Position `json:"position"`
	TeamID            int      `json:"team_id"`
	TeamName          string   `json:"team_name"`
	Price             float64  `json:"price"`
	TotalPoints       int      `json:"total_points"`
	MomentumScore     float64  `json:"momentum_score"`
	Minutes           int      `json:"minutes"`
	Form              float64  `json:"form"`
	SelectedByPercent float64  `json:"selected_by_percent"`
	Goals             int      `json:"goals_scored"`
	Assists           int      `json:"assists"`
	CleanSheets       int      `json:"clean_sheets"`
	ChanceOfPlaying   int      `json:"chance_of_playing"`
}

// Team is read-only reference data with FPL strength ratings (~1000 baseline).
type Team struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	StrengthOverallHome int    `json:"strength_overall_home"`
	StrengthOverallAway int    `json:"strength_overall_away"`
	StrengthAttackHome  int    `json:"strength_attack_home"`
	StrengthAttackAway  int    `json:"strength_attack_away"`
	StrengthDefenceHome int    `json:"strength_defence_home"`
	StrengthDefenceAway int    `json:"strength_defence_away"`
}

// Fixture is one scheduled match. Difficulty uses the FPL 1-5 scale where
// 1 is the easiest opponent.
type Fixture struct {
	Event           int    `json:"event"`
	TeamH           int    `json:"team_h"`
	TeamA           int    `json:"team_a"`
	TeamHDifficulty int    `json:"team_h_difficulty"`
	TeamADifficulty int    `json:"team_a_difficulty"`
	Finished        bool   `json:"finished"`
	KickoffTime     string `json:"kickoff_time,omitempty"`
}

// FixtureSummary describes one upcoming fixture from a single team's view.
type FixtureSummary struct {
	Gameweek             int     `json:"gameweek"`
	OpponentID           int     `json:"opponent_id"`
	OpponentName         string  `json:"opponent_name"`
	IsHome               bool    `json:"is_home"`
	DifficultyRaw        int     `json:"difficulty_raw"`
	DifficultyNormalized float64 `json:"difficulty_normalized"`
	Venue                string  `json:"venue"`
}

// FixtureAnalysis is the derived difficulty picture for one team over a
// rolling window of upcoming gameweeks. Normalized difficulty is in [0,1]
// with 1 meaning the easiest possible run.
type FixtureAnalysis struct {
	TeamID                 int              `json:"team_id"`
	TeamName               string           `json:"team_name"`
	GameweeksAnalyzed      int              `json:"gameweeks_analyzed"`
	FixturesCount          int              `json:"fixtures_count"`
	UpcomingFixtures       []FixtureSummary `json:"upcoming_fixtures"`
	AvgDifficulty          float64          `json:"avg_difficulty"`
	HomeGamesRatio         float64          `json:"home_games_ratio"`
	DoubleGameweekCount    int              `json:"double_gameweek_count"`
	DoubleGameweekBonus    float64          `json:"double_gameweek_bonus"`
	FixtureDifficultyScore float64          `json:"fixture_difficulty_score"`
}

// GameweekFixture is one match in a gameweek listing with resolved team names.
type GameweekFixture struct {
	HomeTeam       string `json:"home_team"`
	AwayTeam       string `json:"away_team"`
	KickoffTime    string `json:"kickoff_time,omitempty"`
	HomeDifficulty int    `json:"home_difficulty"`
	AwayDifficulty int    `json:"away_difficulty"`
}

// GameweekFixtures is the full slate for one gameweek.
type GameweekFixtures struct {
	Gameweek   int               `json:"gameweek"`
	Fixtures   []GameweekFixture `json:"fixtures"`
	TotalGames int               `json:"total_games"`
}

// ScoredPlayer is a Player plus every derived analytical signal.
type ScoredPlayer struct {
	Player              Player  `json:"player"`
	MomentumLevel       string  `json:"momentum_level"`
	Selected            bool    `json:"selected"`
	Recommendation      string  `json:"recommendation"`
	CaptainScore        float64 `json:"captain_score"`
	TransferPriority    float64 `json:"transfer_priority"`
	MultiObjectiveScore float64 `json:"multi_objective_score"`
	OwnershipCategory   string  `json:"ownership_category"`
	ValueRating         float64 `json:"value_rating"`
}

// PlayerComparison compares a transfer candidate against the player being sold.
type PlayerComparison struct {
	MomentumImprovement float64 `json:"momentum_improvement"`
	PointsDifference    int     `json:"points_difference"`
	FormImprovement     float64 `json:"form_improvement"`
	Recommendation      string  `json:"recommendation"`
}

// TransferTarget pairs a scored candidate with its comparison and budget impact.
type TransferTarget struct {
	ScoredPlayer
	Comparison      PlayerComparison `json:"comparison"`
	PriceDifference float64          `json:"price_difference"`
	BudgetRemaining float64          `json:"budget_remaining"`
}

// TransferPlan is the full sell/buy recommendation for one outgoing player.
type TransferPlan struct {
	SellingPlayer Player           `json:"selling_player"`
	RealBudget    float64          `json:"real_budget"`
	Targets       []TransferTarget `json:"targets"`
}

// SellCandidate ranks a squad member by how advisable it is to sell them.
type SellCandidate struct {
	Analysis     ScoredPlayer `json:"analysis"`
	SellPriority float64      `json:"sell_priority"`
	Reasoning    string       `json:"reasoning"`
}

// Squad is a selected 15-player squad. A squad that could not satisfy the
// formation, budget or team-cap constraints is still returned with Valid
// set to false; selection failure is a data-level signal, not an error.
type Squad struct {
	ID         string   `json:"id"`
	StartingXI []Player `json:"starting_xi"`
	Bench      []Player `json:"bench"`
	Captain    *Player  `json:"captain,omitempty"`
	TotalCost  float64  `json:"total_cost"`
	Formation  string   `json:"formation"`
	Valid      bool     `json:"valid"`
}

// Players returns the full 15 (or fewer, on shortfall) squad members.
func (s Squad) Players() []Player {
	all := make([]Player, 0, len(s.StartingXI)+len(s.Bench))
	all = append(all, s.StartingXI...)
	all = append(all, s.Bench...)
	return all
}
