package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) AnalyticsSummary(c *gin.Context) {
	summary, err := s.analyticsSvc.Summary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) DownloadRevenueCSV(c *gin.Context) {
	doc, err := s.analyticsSvc.RevenueCSV(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="revenue.csv"`)
	c.Data(http.StatusOK, "text/csv", doc)
}
