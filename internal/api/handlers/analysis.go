package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/davidkorenblit/fpl-assistant/internal/cache"
	"github.com/davidkorenblit/fpl-assistant/internal/config"
	"github.com/davidkorenblit/fpl-assistant/internal/fixtures"
	"github.com/davidkorenblit/fpl-assistant/internal/ownership"
	"github.com/davidkorenblit/fpl-assistant/internal/scoring"
	"github.com/davidkorenblit/fpl-assistant/internal/squad"
	"github.com/davidkorenblit/fpl-assistant/internal/types"
	"github.com/davidkorenblit/fpl-assistant/pkg/logger"
)

// Handler owns the analysis engines and the in-memory dataset they work on.
// The dataset is replaced wholesale via PUT /dataset; individual engines keep
// their own caches and are rebuilt or cleared on replacement.
type Handler struct {
	cfg *config.Config

	mu            sync.RWMutex
	players       []types.Player
	playerIndex   map[int]types.Player
	fixtureEngine *fixtures.Engine

	scoringEngine *scoring.Engine
	builder       *squad.Builder
	redisClient   *redis.Client

	logger *logrus.Entry
}

// NewHandler wires the engines together. redisClient may be nil; the squad
// snapshot cache is then skipped.
func NewHandler(cfg *config.Config, redisClient *redis.Client) *Handler {
	h := &Handler{
		cfg:           cfg,
		playerIndex:   make(map[int]types.Player),
		fixtureEngine: fixtures.NewEngine(nil, nil, cfg.FixtureTTL()),
		scoringEngine: scoring.NewEngine(cfg.RandomSeed, cfg.AnalysisTTL()),
		builder:       squad.NewBuilder(cfg.DefaultBudget, cfg.SquadTTL()),
		redisClient:   redisClient,
		logger:        logger.WithService("fpl-assistant"),
	}
	h.scoringEngine.UseFixtures(h.fixtureEngine, cfg.DefaultLookahead)
	return h
}

type datasetRequest struct {
	Players  []types.Player  `json:"players" binding:"required"`
	Teams    []types.Team    `json:"teams" binding:"required"`
	Fixtures []types.Fixture `json:"fixtures"`
}

// ReplaceDataset swaps in a fresh dataset. The fixture engine is rebuilt
// from the new fixtures and teams, and scoring results for the old dataset
// are discarded. Players with no playing-chance reading default to 100.
func (h *Handler) ReplaceDataset(c *gin.Context) {
	var req datasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dataset payload", "details": err.Error()})
		return
	}

	players := make([]types.Player, 0, len(req.Players))
	index := make(map[int]types.Player, len(req.Players))
	for _, p := range req.Players {
		if p.ID <= 0 || !p.Position.Valid() {
			continue
		}
		if p.ChanceOfPlaying == 0 {
			p.ChanceOfPlaying = 100
		}
		players = append(players, p)
		index[p.ID] = p
	}

	engine := fixtures.NewEngine(req.Fixtures, req.Teams, h.cfg.FixtureTTL())

	h.mu.Lock()
	h.players = players
	h.playerIndex = index
	h.fixtureEngine = engine
	h.mu.Unlock()

	h.scoringEngine.UseFixtures(engine, h.cfg.DefaultLookahead)
	h.scoringEngine.ClearCache()
	h.scoringEngine.ResetRandomizer(h.cfg.RandomSeed)
	h.builder.ClearCache()

	h.logger.WithFields(logrus.Fields{
		"players":       len(players),
		"teams":         len(req.Teams),
		"fixtures":      len(req.Fixtures),
		"current_round": engine.CurrentRound(),
	}).Info("Dataset replaced")

	c.JSON(http.StatusOK, gin.H{
		"players_loaded":  len(players),
		"teams_loaded":    len(req.Teams),
		"fixtures_loaded": len(req.Fixtures),
		"current_round":   engine.CurrentRound(),
	})
}

func (h *Handler) snapshot() ([]types.Player, map[int]types.Player, *fixtures.Engine) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.players, h.playerIndex, h.fixtureEngine
}

// TeamFixtures analyzes one team's upcoming run.
func (h *Handler) TeamFixtures(c *gin.Context) {
	teamID, err := strconv.Atoi(c.Param("id"))
	if err != nil || teamID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team id"})
		return
	}
	lookahead := h.lookaheadParam(c)

	_, _, engine := h.snapshot()
	c.JSON(http.StatusOK, engine.AnalyzeTeamFixtures(teamID, lookahead))
}

// AllTeamFixtures runs the batch analysis across every known team.
func (h *Handler) AllTeamFixtures(c *gin.Context) {
	lookahead := h.lookaheadParam(c)

	_, _, engine := h.snapshot()
	analyses := engine.BatchAnalyzeAllTeams(lookahead)

	c.JSON(http.StatusOK, gin.H{
		"current_round":  engine.CurrentRound(),
		"lookahead":      lookahead,
		"teams_analyzed": len(analyses),
		"analyses":       analyses,
	})
}

// GameweekFixtures lists the slate for one round.
func (h *Handler) GameweekFixtures(c *gin.Context) {
	round, err := strconv.Atoi(c.Param("round"))
	if err != nil || round < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid round"})
		return
	}

	_, _, engine := h.snapshot()
	c.JSON(http.StatusOK, engine.GameweekFixtures(round))
}

// BestFixtureTeams and WorstFixtureTeams rank fixture runs.
func (h *Handler) BestFixtureTeams(c *gin.Context) {
	_, _, engine := h.snapshot()
	c.JSON(http.StatusOK, gin.H{
		"teams": engine.BestFixtureTeams(h.lookaheadParam(c), h.topParam(c, 5)),
	})
}

func (h *Handler) WorstFixtureTeams(c *gin.Context) {
	_, _, engine := h.snapshot()
	c.JSON(http.StatusOK, gin.H{
		"teams": engine.WorstFixtureTeams(h.lookaheadParam(c), h.topParam(c, 5)),
	})
}

// FixtureAdjustedMomentum applies the fixture picture to a raw momentum score.
func (h *Handler) FixtureAdjustedMomentum(c *gin.Context) {
	teamID, err := strconv.Atoi(c.Query("team_id"))
	if err != nil || teamID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "team_id query parameter required"})
		return
	}

	momentum, err := strconv.ParseFloat(c.Query("momentum"), 64)
	if err != nil || momentum < 0 || momentum > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "momentum must be in [0,1]"})
		return
	}

	pos := types.Position(c.DefaultQuery("position", string(types.PositionMID)))
	if !pos.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position"})
		return
	}

	_, _, engine := h.snapshot()
	c.JSON(http.StatusOK, gin.H{
		"team_id":           teamID,
		"position":          pos,
		"momentum":          momentum,
		"adjusted_momentum": engine.IntegrateWithMomentum(teamID, pos, momentum),
	})
}

// ScorePlayers scores either the named players or the whole dataset.
type scoreRequest struct {
	PlayerIDs []int `json:"player_ids"`
}

func (h *Handler) ScorePlayers(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	players, index, _ := h.snapshot()
	pool, missing := resolvePlayers(req.PlayerIDs, players, index)
	if len(missing) > 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown player ids", "missing": missing})
		return
	}

	scored := h.scoringEngine.ScoreAll(pool)
	c.JSON(http.StatusOK, gin.H{
		"players_scored": len(scored),
		"results":        scored,
	})
}

// TopPlayers, ValuePicks and PositionLeaders expose the ranking views.
func (h *Handler) TopPlayers(c *gin.Context) {
	players, _, _ := h.snapshot()
	c.JSON(http.StatusOK, gin.H{
		"players": h.scoringEngine.TopPlayers(players, h.topParam(c, 10)),
	})
}

func (h *Handler) ValuePicks(c *gin.Context) {
	players, _, _ := h.snapshot()
	c.JSON(http.StatusOK, gin.H{
		"players": h.scoringEngine.ValuePicks(players, h.topParam(c, 10)),
	})
}

func (h *Handler) PositionLeaders(c *gin.Context) {
	players, _, _ := h.snapshot()
	c.JSON(http.StatusOK, gin.H{
		"leaders": h.scoringEngine.PositionLeaders(players),
	})
}

// CaptainOptions ranks captaincy picks across the dataset.
func (h *Handler) CaptainOptions(c *gin.Context) {
	players, _, _ := h.snapshot()
	c.JSON(http.StatusOK, gin.H{
		"options": h.scoringEngine.CaptainOptions(players),
	})
}

type buildSquadRequest struct {
	Budget float64 `json:"budget"`
}

// BuildSquad assembles a squad from the dataset. When Redis is configured
// the result is snapshotted there so identical requests across restarts can
// be served without rebuilding.
func (h *Handler) BuildSquad(c *gin.Context) {
	var req buildSquadRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if req.Budget < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "budget must not be negative"})
		return
	}

	players, _, _ := h.snapshot()
	if len(players) == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "no dataset loaded"})
		return
	}

	budget := req.Budget
	if budget == 0 {
		budget = h.cfg.DefaultBudget
	}

	snapshotKey := h.squadSnapshotKey(players, budget)
	if cached, ok := h.loadSquadSnapshot(c, snapshotKey); ok {
		c.JSON(http.StatusOK, gin.H{"squad": cached, "from_snapshot": true})
		return
	}

	result := h.builder.BuildSquad(players, budget)
	h.storeSquadSnapshot(c, snapshotKey, result)

	status := http.StatusOK
	if !result.Valid {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"squad": result, "from_snapshot": false})
}

func (h *Handler) squadSnapshotKey(players []types.Player, budget float64) string {
	args := make([]any, 0, len(players)+1)
	args = append(args, budget)
	for _, p := range players {
		args = append(args, p.ID)
	}
	return "fpl:squad:" + cache.Key(args...)
}

func (h *Handler) loadSquadSnapshot(c *gin.Context, key string) (types.Squad, bool) {
	var snap types.Squad
	if h.redisClient == nil {
		return snap, false
	}

	raw, err := h.redisClient.Get(c.Request.Context(), key).Bytes()
	if err != nil {
		if err != redis.Nil {
			h.logger.WithError(err).Warn("Squad snapshot lookup failed")
		}
		return snap, false
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		h.logger.WithError(err).Warn("Squad snapshot corrupted, ignoring")
		return types.Squad{}, false
	}
	return snap, true
}

func (h *Handler) storeSquadSnapshot(c *gin.Context, key string, s types.Squad) {
	if h.redisClient == nil {
		return
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	ttl := time.Duration(h.cfg.SquadCacheTTL) * time.Second
	if err := h.redisClient.Set(c.Request.Context(), key, raw, ttl).Err(); err != nil {
		h.logger.WithError(err).Warn("Squad snapshot store failed")
	}
}

type transferTargetsRequest struct {
	SellingPlayerID int     `json:"selling_player_id" binding:"required"`
	SquadPlayerIDs  []int   `json:"squad_player_ids" binding:"required"`
	FreeBudget      float64 `json:"free_budget"`
}

// TransferTargets proposes replacements for one squad member.
func (h *Handler) TransferTargets(c *gin.Context) {
	var req transferTargetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	players, index, _ := h.snapshot()
	selling, ok := index[req.SellingPlayerID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown player id %d", req.SellingPlayerID)})
		return
	}

	currentSquad, missing := resolvePlayers(req.SquadPlayerIDs, players, index)
	if len(missing) > 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown squad player ids", "missing": missing})
		return
	}

	plan := h.scoringEngine.TransferTargets(selling, players, currentSquad, req.FreeBudget)
	c.JSON(http.StatusOK, plan)
}

type squadIDsRequest struct {
	SquadPlayerIDs []int `json:"squad_player_ids" binding:"required"`
}

// SellCandidates ranks the given squad members weakest first.
func (h *Handler) SellCandidates(c *gin.Context) {
	var req squadIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	players, index, _ := h.snapshot()
	currentSquad, missing := resolvePlayers(req.SquadPlayerIDs, players, index)
	if len(missing) > 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown squad player ids", "missing": missing})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"candidates": h.scoringEngine.SellCandidates(currentSquad),
	})
}

// OwnershipBalance reports how a squad's ownership mix compares to the ideal.
func (h *Handler) OwnershipBalance(c *gin.Context) {
	var req squadIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	players, index, _ := h.snapshot()
	currentSquad, missing := resolvePlayers(req.SquadPlayerIDs, players, index)
	if len(missing) > 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown squad player ids", "missing": missing})
		return
	}

	c.JSON(http.StatusOK, ownership.AnalyzeSquadBalance(currentSquad))
}

// OwnershipAdjustment resolves the ownership modifier for one player profile.
func (h *Handler) OwnershipAdjustment(c *gin.Context) {
	ownershipPct, err := strconv.ParseFloat(c.Query("ownership"), 64)
	if err != nil || ownershipPct < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ownership query parameter required"})
		return
	}

	pos := types.Position(c.DefaultQuery("position", string(types.PositionMID)))
	if !pos.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position"})
		return
	}

	gameweek, err := strconv.Atoi(c.DefaultQuery("gameweek", "1"))
	if err != nil || gameweek < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gameweek"})
		return
	}

	c.JSON(http.StatusOK, ownership.CalculateAdjustment(ownershipPct, pos, gameweek))
}

// CacheStats aggregates the snapshot of every cache partition.
func (h *Handler) CacheStats(c *gin.Context) {
	_, _, engine := h.snapshot()

	stats := engine.CacheStats()
	stats = append(stats, h.scoringEngine.CacheStats(), h.builder.CacheStats())
	c.JSON(http.StatusOK, gin.H{"partitions": stats})
}

// EvictExpired sweeps every engine cache and returns the total evicted.
// Called periodically by the background sweep job.
func (h *Handler) EvictExpired() int {
	_, _, engine := h.snapshot()
	return engine.EvictExpired() + h.scoringEngine.EvictExpired() + h.builder.EvictExpired()
}

// resolvePlayers maps ids to players; an empty id list means the whole pool.
func resolvePlayers(ids []int, pool []types.Player, index map[int]types.Player) ([]types.Player, []int) {
	if len(ids) == 0 {
		return pool, nil
	}

	resolved := make([]types.Player, 0, len(ids))
	missing := make([]int, 0)
	for _, id := range ids {
		p, ok := index[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		resolved = append(resolved, p)
	}
	return resolved, missing
}

func (h *Handler) lookaheadParam(c *gin.Context) int {
	lookahead, err := strconv.Atoi(c.DefaultQuery("lookahead", strconv.Itoa(h.cfg.DefaultLookahead)))
	if err != nil || lookahead < 1 {
		return h.cfg.DefaultLookahead
	}
	return lookahead
}

func (h *Handler) topParam(c *gin.Context, fallback int) int {
	top, err := strconv.Atoi(c.DefaultQuery("top", strconv.Itoa(fallback)))
	if err != nil || top < 1 {
		return fallback
	}
	return top
}

// RequestLogger tags every request with an id and logs its outcome.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set("request_id", requestID)

		start := time.Now()
		c.Next()

		logger.WithRequestContext(requestID, c.Request.URL.Path).WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Request completed")
	}
}
