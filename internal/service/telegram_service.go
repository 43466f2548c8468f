package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"questor_backend/internal/model"
	"questor_backend/internal/repository"
	"questor_backend/internal/telegram"
	"questor_backend/internal/util"
	"questor_backend/pkg/logger"

	"go.uber.org/zap"
)

const linkCodeTTL = 10 * time.Minute

// BotSender webhook 处理只依赖发送能力，测试可替换
type BotSender interface {
	SendMessage(chatID int64, text string) error
}

type TelegramService struct {
	TelegramRepo    *repository.TelegramRepository
	UserRepo        *repository.UserRepository
	AttemptRepo     *repository.AttemptRepository
	AchievementRepo *repository.AchievementRepository
	Bot             BotSender
	Clock           util.Clock
}

func NewTelegramService(
	telegramRepo *repository.TelegramRepository,
	userRepo *repository.UserRepository,
	attemptRepo *repository.AttemptRepository,
	achievementRepo *repository.AchievementRepository,
	bot BotSender,
	clock util.Clock,
) *TelegramService {
	return &TelegramService{
		TelegramRepo:    telegramRepo,
		UserRepo:        userRepo,
		AttemptRepo:     attemptRepo,
		AchievementRepo: achievementRepo,
		Bot:             bot,
		Clock:           clock,
	}
}

// CreateLinkCode 生成一次性绑定码，用户发给机器人完成账号绑定
func (s *TelegramService) CreateLinkCode(userID string) (string, time.Time, error) {
	code := strings.ReplaceAll(model.GenerateUUID(), "-", "")[:12]
	expiresAt := s.Clock.Now().Add(linkCodeTTL)

	link := &model.TelegramLink{
		UserID:      userID,
		OneTimeCode: code,
		ExpiresAt:   expiresAt,
	}
	if err := s.TelegramRepo.CreateLink(link); err != nil {
		return "", time.Time{}, err
	}
	return code, expiresAt, nil
}

// HandleUpdate webhook 入口。UpdateID 去重后处理 /start、/me 和绑定码
func (s *TelegramService) HandleUpdate(update *telegram.Update) error {
	payload, _ := json.Marshal(update)
	updateType := "message"
	if update.Message == nil {
		updateType = "other"
	}

	fresh, err := s.TelegramRepo.LogUpdate(update.UpdateID, updateType, string(payload))
	if err != nil {
		return err
	}
	if !fresh {
		// 重放的更新直接忽略
		return nil
	}
	defer func() {
		if err := s.TelegramRepo.MarkProcessed(update.UpdateID, s.Clock.Now()); err != nil {
			logger.Log.Warn("mark telegram update processed failed", zap.Error(err))
		}
	}()

	if update.Message == nil || update.Message.From == nil {
		return nil
	}
	msg := update.Message
	text := strings.TrimSpace(msg.Text)

	switch {
	case strings.HasPrefix(text, "/start"):
		return s.Bot.SendMessage(msg.Chat.ID,
			"欢迎！请在网站个人中心生成一次性绑定码，然后发送给机器人完成绑定。")

	case strings.HasPrefix(text, "/me"):
		return s.replyProgress(msg)

	default:
		return s.tryConsumeLinkCode(msg, text)
	}
}

func (s *TelegramService) replyProgress(msg *telegram.Message) error {
	user, err := s.UserRepo.FindByTelegramID(strconv.FormatInt(msg.From.ID, 10))
	if err != nil {
		return s.Bot.SendMessage(msg.Chat.ID, "账号未绑定，请先发送一次性绑定码。")
	}

	attempts, err := s.AttemptRepo.ListByUser(user.ID)
	if err != nil {
		return err
	}
	completed := 0
	for _, a := range attempts {
		if a.Status == model.AttemptCompleted {
			completed++
		}
	}
	badges, err := s.AchievementRepo.CountAwardsByUser(user.ID)
	if err != nil {
		return err
	}

	return s.Bot.SendMessage(msg.Chat.ID,
		fmt.Sprintf("学习进度：\n尝试次数：%d\n已完成：%d\n成就数：%d", len(attempts), completed, badges))
}

func (s *TelegramService) tryConsumeLinkCode(msg *telegram.Message, code string) error {
	link, err := s.TelegramRepo.ConsumeLink(code, s.Clock.Now())
	if err != nil {
		if err == util.ErrLinkCodeNotFound {
			return s.Bot.SendMessage(msg.Chat.ID, "无法识别的指令或绑定码无效。")
		}
		return err
	}

	if err := s.UserRepo.LinkTelegram(link.UserID,
		strconv.FormatInt(msg.From.ID, 10), msg.From.Username); err != nil {
		return err
	}
	return s.Bot.SendMessage(msg.Chat.ID, "账号绑定成功 ✅")
}
