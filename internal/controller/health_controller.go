package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthController struct {
	DB *gorm.DB
}

func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{DB: db}
}

// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	status := "ok"
	db, err := c.DB.DB()
	if err != nil || db.Ping() != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": status})
}
