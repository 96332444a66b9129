package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter sets up the API routes. Metrics are served from gatherer when
// it is not nil.
func NewRouter(mounts Mounts, ws *WSHandler, gatherer prometheus.Gatherer) *gin.Engine {
	treeHandler := NewTreeHandler(mounts)
	fileHandler := NewFileHandler(mounts)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Cache-Control"},
		MaxAge:          12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/roots", treeHandler.GetRoots)
		api.GET("/tree", treeHandler.GetTree)
		api.GET("/raw/*path", fileHandler.GetRaw)
		api.GET("/stat/*path", fileHandler.GetStat)
		api.GET("/ws", ws.HandleWS)
	}

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return r
}
