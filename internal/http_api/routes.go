package http_api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/api/v1/spin", s.spin)
	s.router.GET("/api/v1/wheels/:variant", s.getWheel)

	admin := s.router.Group("/api/v1/admin", s.adminAuth())
	admin.PUT("/wheels/:variant", s.updateWheel)
	admin.POST("/wheels/:variant/simulate", s.simulate)
	admin.GET("/jobs", s.jobs)
	admin.POST("/jobs/:name/run", s.runJob)
	admin.POST("/channels/:id/activate", s.activateChannel)
	admin.POST("/channels/:id/deactivate", s.deactivateChannel)
	admin.POST("/channels/:id/hot-offer", s.setHotOffer)
}
