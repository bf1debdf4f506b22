package handlers

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type RouterOptions struct {
	// CORSOrigins lists allowed browser origins; "*" allows any.
	CORSOrigins []string
	Production  bool
}

// NewRouter wires the middleware chain and every route onto a gin engine.
func NewRouter(h *Handler, opts RouterOptions, log *logrus.Logger) *gin.Engine {
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(RequestID(), RequestLogger(log), Recovery(log))
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))

	r.NoRoute(func(c *gin.Context) { fail(c, http.StatusNotFound, "Not found") })
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.GET("/portfolio", h.GetPortfolio)
		api.POST("/portfolio", h.CreateHolding)
		api.POST("/portfolio/import", h.ImportHoldings)
		api.GET("/portfolio/:id", h.GetHolding)
		api.PUT("/portfolio/:id", h.UpdateHolding)
		api.DELETE("/portfolio/:id", h.DeleteHolding)

		api.POST("/stocks/update", h.UpdateStocks)
		api.GET("/stocks/update", h.AutoUpdateStocks)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
