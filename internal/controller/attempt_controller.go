package controller

import (
	"encoding/json"
	"errors"

	"questor_backend/internal/service"
	"questor_backend/internal/util"
	"questor_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	Service *service.AttemptService
}

func NewAttemptController(svc *service.AttemptService) *AttemptController {
	return &AttemptController{Service: svc}
}

type startAttemptReq struct {
	ScenarioID string `json:"scenarioId" binding:"required"`
}

// @Summary 开始场景挑战
// @Tags 挑战模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body startAttemptReq true "场景ID"
// @Success 201 {object} util.Response
// @Router /api/attempts [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req startAttemptReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	attemptID, err := c.Service.Start(user.UserID, req.ScenarioID)
	if err != nil {
		if errors.Is(err, util.ErrScenarioNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"attemptId": attemptID})
}

type submitAnswerReq struct {
	StepID string          `json:"stepId" binding:"required"`
	Answer json.RawMessage `json:"answer" binding:"required"`
}

// @Summary 提交步骤答案
// @Tags 挑战模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "尝试ID"
// @Param body body submitAnswerReq true "答案"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/answer [post]
func (c *AttemptController) SubmitAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req submitAnswerReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.SubmitAnswer(user.UserID, ctx.Param("id"), req.StepID, string(req.Answer))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAttemptNotFound), errors.Is(err, util.ErrStepNotInAttempt):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrAttemptFinished):
			util.Conflict(ctx, err.Error())
		case errors.Is(err, util.ErrAnswerTooLarge),
			errors.Is(err, util.ErrMalformedAnswer),
			errors.Is(err, util.ErrMalformedContent),
			errors.Is(err, util.ErrUnknownStepType):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, result)
}

// @Summary 结束挑战并评估成就
// @Tags 挑战模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "尝试ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/finish [post]
func (c *AttemptController) Finish(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.Service.Finish(user.UserID, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrAttemptNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	monitoring.AttemptsFinished.Inc()
	monitoring.AchievementsAwarded.Add(float64(len(result.NewAchievements)))

	util.Success(ctx, result)
}

// @Summary 查看挑战详情
// @Tags 挑战模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "尝试ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id} [get]
func (c *AttemptController) Get(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.Service.GetView(user.UserID, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrAttemptNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, view)
}

// @Summary 我的挑战列表
// @Tags 挑战模块
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/attempts [get]
func (c *AttemptController) ListMine(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	attempts, err := c.Service.ListMine(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, attempts)
}
