package controller

import (
	"strconv"

	"questor_backend/internal/service"
	"questor_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AchievementController struct {
	Service *service.AchievementService
}

func NewAchievementController(svc *service.AchievementService) *AchievementController {
	return &AchievementController{Service: svc}
}

// @Summary 成就定义列表
// @Tags 成就模块
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/achievements [get]
func (c *AchievementController) List(ctx *gin.Context) {
	achievements, err := c.Service.ListDefinitions()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, achievements)
}

// @Summary 我的成就
// @Tags 成就模块
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/achievements/mine [get]
func (c *AchievementController) Mine(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	awards, err := c.Service.GetUserAwards(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, awards)
}

// @Summary 排行榜
// @Tags 成就模块
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "条数" default(10)
// @Success 200 {object} util.Response
// @Router /api/achievements/leaderboard [get]
func (c *AchievementController) Leaderboard(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	rows, err := c.Service.GetLeaderboard(ctx.Request.Context(), limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, rows)
}
