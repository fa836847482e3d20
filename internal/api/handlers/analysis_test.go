package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidkorenblit/fpl-assistant/internal/config"
	"github.com/davidkorenblit/fpl-assistant/internal/types"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:             "8080",
		Env:              "development",
		FixtureCacheTTL:  900,
		AnalysisCacheTTL: 1800,
		SquadCacheTTL:    1800,
		DefaultBudget:    100.0,
		DefaultLookahead: 5,
		RandomSeed:       42,
	}
}

func testRouter(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewHandler(testConfig(), nil)

	r := gin.New()
	r.GET("/health", h.Health)
	r.PUT("/dataset", h.ReplaceDataset)
	r.GET("/fixtures/teams/:id", h.TeamFixtures)
	r.GET("/fixtures/gameweek/:round", h.GameweekFixtures)
	r.POST("/players/score", h.ScorePlayers)
	r.POST("/squad/build", h.BuildSquad)
	r.POST("/transfers/targets", h.TransferTargets)
	r.GET("/ownership/adjustment", h.OwnershipAdjustment)
	r.GET("/cache/stats", h.CacheStats)
	return r, h
}

func testDataset() datasetRequest {
	players := make([]types.Player, 0, 40)
	id := 0
	add := func(n int, pos types.Position, price, momentum float64) {
		for i := 0; i < n; i++ {
			id++
			players = append(players, types.Player{
				ID:            id,
				Name:          fmt.Sprintf("%s %d", pos, id),
				Position:      pos,
				TeamID:        (id % 8) + 1,
				TeamName:      fmt.Sprintf("Team %d", (id%8)+1),
				Price:         price + float64(i)*0.3,
				MomentumScore: momentum - float64(i)*0.03,
				TotalPoints:   50 + i*5,
				Form:          5,
			})
		}
	}
	add(4, types.PositionGK, 4.5, 0.7)
	add(10, types.PositionDEF, 4.5, 0.75)
	add(10, types.PositionMID, 5.5, 0.8)
	add(8, types.PositionFWD, 6.0, 0.85)

	teams := make([]types.Team, 0, 8)
	for i := 1; i <= 8; i++ {
		teams = append(teams, types.Team{
			ID: i, Name: fmt.Sprintf("Team %d", i),
			StrengthOverallHome: 1200, StrengthOverallAway: 1150,
		})
	}

	return datasetRequest{
		Players: players,
		Teams:   teams,
		Fixtures: []types.Fixture{
			{Event: 1, TeamH: 1, TeamA: 2, TeamHDifficulty: 2, TeamADifficulty: 4},
			{Event: 1, TeamH: 3, TeamA: 4, TeamHDifficulty: 3, TeamADifficulty: 3},
			{Event: 2, TeamH: 2, TeamA: 1, TeamHDifficulty: 3, TeamADifficulty: 3},
		},
	}
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func loadDataset(t *testing.T, r *gin.Engine) {
	t.Helper()
	w := doJSON(t, r, http.MethodPut, "/dataset", testDataset())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHealth(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, false, resp["dataset_loaded"])
	assert.Equal(t, "disabled", resp["redis"])
}

func TestReplaceDataset(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, http.MethodPut, "/dataset", testDataset())
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(32), resp["players_loaded"])
	assert.Equal(t, float64(1), resp["current_round"])
}

func TestReplaceDataset_RejectsInvalidPayload(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, http.MethodPut, "/dataset", map[string]any{"players": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTeamFixtures(t *testing.T) {
	r, _ := testRouter(t)
	loadDataset(t, r)

	w := doJSON(t, r, http.MethodGet, "/fixtures/teams/1?lookahead=5", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var analysis types.FixtureAnalysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
	assert.Equal(t, 1, analysis.TeamID)
	assert.Equal(t, "Team 1", analysis.TeamName)
	assert.Equal(t, 2, analysis.FixturesCount)
}

func TestTeamFixtures_BadID(t *testing.T) {
	r, _ := testRouter(t)
	w := doJSON(t, r, http.MethodGet, "/fixtures/teams/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGameweekFixtures(t *testing.T) {
	r, _ := testRouter(t)
	loadDataset(t, r)

	w := doJSON(t, r, http.MethodGet, "/fixtures/gameweek/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var gw types.GameweekFixtures
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gw))
	assert.Equal(t, 2, gw.TotalGames)
}

func TestScorePlayers_WholePool(t *testing.T) {
	r, _ := testRouter(t)
	loadDataset(t, r)

	w := doJSON(t, r, http.MethodPost, "/players/score", map[string]any{})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		PlayersScored int                  `json:"players_scored"`
		Results       []types.ScoredPlayer `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 32, resp.PlayersScored)
	for _, s := range resp.Results {
		assert.GreaterOrEqual(t, s.MultiObjectiveScore, 0.0)
		assert.LessOrEqual(t, s.MultiObjectiveScore, 1.0)
	}
}

func TestScorePlayers_UnknownID(t *testing.T) {
	r, _ := testRouter(t)
	loadDataset(t, r)

	w := doJSON(t, r, http.MethodPost, "/players/score", map[string]any{"player_ids": []int{9999}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBuildSquad(t *testing.T) {
	r, _ := testRouter(t)
	loadDataset(t, r)

	w := doJSON(t, r, http.MethodPost, "/squad/build", map[string]any{"budget": 100.0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Squad        types.Squad `json:"squad"`
		FromSnapshot bool        `json:"from_snapshot"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Squad.Valid)
	assert.False(t, resp.FromSnapshot)
	assert.Len(t, resp.Squad.StartingXI, 11)
	assert.Len(t, resp.Squad.Bench, 4)
	assert.LessOrEqual(t, resp.Squad.TotalCost, 100.0)
}

func TestBuildSquad_NoDataset(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, http.MethodPost, "/squad/build", map[string]any{"budget": 100.0})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTransferTargets(t *testing.T) {
	r, _ := testRouter(t)
	loadDataset(t, r)

	w := doJSON(t, r, http.MethodPost, "/transfers/targets", map[string]any{
		"selling_player_id": 15,
		"squad_player_ids":  []int{15, 16, 17},
		"free_budget":       2.0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var plan types.TransferPlan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	assert.Equal(t, 15, plan.SellingPlayer.ID)
	assert.Greater(t, plan.RealBudget, 2.0)
	for _, target := range plan.Targets {
		assert.NotEqual(t, 15, target.Player.ID)
		assert.NotEqual(t, 16, target.Player.ID)
		assert.NotEqual(t, 17, target.Player.ID)
	}
}

func TestOwnershipAdjustment(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, http.MethodGet, "/ownership/adjustment?ownership=8&position=MID&gameweek=38", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "differential", resp["bracket"])
	assert.InDelta(t, 0.12, resp["final_modifier"].(float64), 1e-9)

	missing := doJSON(t, r, http.MethodGet, "/ownership/adjustment", nil)
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestCacheStats(t *testing.T) {
	r, _ := testRouter(t)
	loadDataset(t, r)
	doJSON(t, r, http.MethodGet, "/fixtures/teams/1", nil)

	w := doJSON(t, r, http.MethodGet, "/cache/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Partitions []map[string]any `json:"partitions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Partitions)
}
