package controller

import (
	"errors"
	"fmt"
	"path/filepath"

	"questor_backend/internal/service"
	"questor_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AdminController struct {
	Scenarios *service.ScenarioService
	Storage   *service.StorageService
}

func NewAdminController(scenarios *service.ScenarioService, storage *service.StorageService) *AdminController {
	return &AdminController{Scenarios: scenarios, Storage: storage}
}

// @Summary 创建场景
// @Tags 管理模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.ScenarioReq true "场景信息"
// @Success 201 {object} util.Response
// @Router /api/admin/scenarios [post]
func (c *AdminController) CreateScenario(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ScenarioReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	scenario, err := c.Scenarios.Create(user.UserID, req)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			util.Conflict(ctx, "slug already exists")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, scenario)
}

type publishReq struct {
	IsPublished *bool `json:"isPublished" binding:"required"`
}

// @Summary 发布/下线场景
// @Tags 管理模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "场景ID"
// @Param body body publishReq true "发布状态"
// @Success 200 {object} util.Response
// @Router /api/admin/scenarios/{id}/publish [put]
func (c *AdminController) PublishScenario(ctx *gin.Context) {
	var req publishReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Scenarios.SetPublished(ctx.Param("id"), *req.IsPublished); err != nil {
		if errors.Is(err, util.ErrScenarioNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// @Summary 整组替换场景步骤
// @Tags 管理模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "场景ID"
// @Param body body []service.ScenarioStepReq true "步骤列表"
// @Success 200 {object} util.Response
// @Router /api/admin/scenarios/{id}/steps [post]
func (c *AdminController) ReplaceSteps(ctx *gin.Context) {
	var reqs []service.ScenarioStepReq
	if err := ctx.ShouldBindJSON(&reqs); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Scenarios.ReplaceSteps(ctx.Param("id"), reqs); err != nil {
		switch {
		case errors.Is(err, util.ErrScenarioNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrUnknownStepType), errors.Is(err, util.ErrMalformedContent):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, nil)
}

// @Summary 创建成就
// @Tags 管理模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.AchievementReq true "成就信息"
// @Success 201 {object} util.Response
// @Router /api/admin/achievements [post]
func (c *AdminController) CreateAchievement(ctx *gin.Context) {
	var req service.AchievementReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	achievement, err := c.Scenarios.CreateAchievement(req)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			util.Conflict(ctx, util.ErrAchievementExists.Error())
		case errors.Is(err, util.ErrMalformedContent):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, achievement)
}

// @Summary 上传成就图标
// @Tags 管理模块
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "成就ID"
// @Param file formData file true "图标文件"
// @Success 200 {object} util.Response
// @Router /api/admin/achievements/{id}/icon [post]
func (c *AdminController) UploadAchievementIcon(ctx *gin.Context) {
	achievementID := ctx.Param("id")

	achievement, err := c.Scenarios.AchievementRepo.FindByID(achievementID)
	if err != nil {
		util.NotFound(ctx)
		return
	}

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	defer file.Close()

	filename := fmt.Sprintf("achievements/%s%s", achievement.ID, filepath.Ext(header.Filename))
	url, err := c.Storage.Upload(ctx.Request.Context(), filename, file, header.Size,
		header.Header.Get("Content-Type"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	if err := c.Scenarios.AchievementRepo.UpdateIconURL(achievement.ID, url); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"iconUrl": url})
}
