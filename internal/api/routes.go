package api

import (
	"github.com/gin-gonic/gin"

	"github.com/davidkorenblit/fpl-assistant/internal/api/handlers"
)

// SetupRouter builds the gin engine with all analysis routes registered.
func SetupRouter(h *handlers.Handler, isDevelopment bool) *gin.Engine {
	if !isDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestLogger())

	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	{
		v1.PUT("/dataset", h.ReplaceDataset)

		fixtures := v1.Group("/fixtures")
		{
			fixtures.GET("/teams/:id", h.TeamFixtures)
			fixtures.GET("/analysis", h.AllTeamFixtures)
			fixtures.GET("/gameweek/:round", h.GameweekFixtures)
			fixtures.GET("/best", h.BestFixtureTeams)
			fixtures.GET("/worst", h.WorstFixtureTeams)
			fixtures.GET("/momentum", h.FixtureAdjustedMomentum)
		}

		players := v1.Group("/players")
		{
			players.POST("/score", h.ScorePlayers)
			players.GET("/top", h.TopPlayers)
			players.GET("/value-picks", h.ValuePicks)
			players.GET("/position-leaders", h.PositionLeaders)
		}

		v1.GET("/captains", h.CaptainOptions)
		v1.POST("/squad/build", h.BuildSquad)

		transfers := v1.Group("/transfers")
		{
			transfers.POST("/targets", h.TransferTargets)
			transfers.POST("/sell-candidates", h.SellCandidates)
		}

		ownership := v1.Group("/ownership")
		{
			ownership.POST("/balance", h.OwnershipBalance)
			ownership.GET("/adjustment", h.OwnershipAdjustment)
		}

		v1.GET("/cache/stats", h.CacheStats)
	}

	return r
}
