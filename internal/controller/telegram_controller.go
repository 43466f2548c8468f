package controller

import (
	"questor_backend/internal/config"
	"questor_backend/internal/service"
	"questor_backend/internal/telegram"
	"questor_backend/internal/util"
	"questor_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TelegramController struct {
	Service *service.TelegramService
	Config  *config.Config
}

func NewTelegramController(svc *service.TelegramService, cfg *config.Config) *TelegramController {
	return &TelegramController{Service: svc, Config: cfg}
}

// @Summary 生成 Telegram 一次性绑定码
// @Tags Telegram模块
// @Produce json
// @Security ApiKeyAuth
// @Success 201 {object} util.Response
// @Router /api/telegram/link [post]
func (c *TelegramController) CreateLink(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	code, expiresAt, err := c.Service.CreateLinkCode(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"code": code, "expiresAt": expiresAt})
}

// @Summary Telegram webhook 入口
// @Tags Telegram模块
// @Accept json
// @Produce json
// @Param secret path string true "webhook 密钥"
// @Success 200 {object} util.Response
// @Router /api/telegram/webhook/{secret} [post]
func (c *TelegramController) Webhook(ctx *gin.Context) {
	if ctx.Param("secret") != c.Config.Telegram.WebhookSecret {
		util.Forbidden(ctx)
		return
	}

	var update telegram.Update
	if err := ctx.ShouldBindJSON(&update); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	// webhook 必须快速 200，处理失败只记日志，Telegram 会按自己的策略重试
	if err := c.Service.HandleUpdate(&update); err != nil {
		logger.Log.Error("telegram update failed",
			zap.Int64("updateId", update.UpdateID), zap.Error(err))
	}

	util.Success(ctx, nil)
}
