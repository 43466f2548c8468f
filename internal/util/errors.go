package util

import "errors"

var (
	ErrUserNotFound      = errors.New("用户不存在")
	ErrEmailRegistered   = errors.New("该邮箱已被注册")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrScenarioNotFound  = errors.New("scenario not found or not published")
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrAttemptFinished   = errors.New("attempt already finished")
	ErrStepNotInAttempt  = errors.New("step not part of this attempt")
	ErrAnswerTooLarge    = errors.New("answer payload too large")
	ErrMalformedAnswer   = errors.New("malformed answer payload")
	ErrMalformedContent  = errors.New("malformed step content")
	ErrUnknownStepType   = errors.New("unknown step type")
	ErrAchievementExists = errors.New("achievement code already exists")
	ErrLinkCodeNotFound  = errors.New("link code not found or expired")
)
