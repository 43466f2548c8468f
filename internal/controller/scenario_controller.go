package controller

import (
	"errors"
	"strconv"

	"questor_backend/internal/repository"
	"questor_backend/internal/service"
	"questor_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ScenarioController struct {
	Service *service.ScenarioService
}

func NewScenarioController(svc *service.ScenarioService) *ScenarioController {
	return &ScenarioController{Service: svc}
}

// @Summary 已发布场景列表
// @Tags 场景模块
// @Produce json
// @Param tag query string false "标签过滤"
// @Param difficulty query int false "难度过滤"
// @Param authorId query string false "作者过滤"
// @Success 200 {object} util.Response
// @Router /api/scenarios [get]
func (c *ScenarioController) List(ctx *gin.Context) {
	difficulty, _ := strconv.Atoi(ctx.Query("difficulty"))

	items, err := c.Service.ListPublished(repository.ScenarioFilter{
		Tag:        ctx.Query("tag"),
		Difficulty: difficulty,
		AuthorID:   ctx.Query("authorId"),
	})
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, items)
}

// @Summary 场景详情（含步骤）
// @Tags 场景模块
// @Produce json
// @Param id path string true "场景ID"
// @Success 200 {object} util.Response
// @Router /api/scenarios/{id} [get]
func (c *ScenarioController) Get(ctx *gin.Context) {
	scenario, err := c.Service.GetPublished(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrScenarioNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, scenario)
}
