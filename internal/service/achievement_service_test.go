package service

import (
	"testing"
	"time"

	"questor_backend/internal/model"
	"questor_backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAchievementFixture(t *testing.T) (*AchievementService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewAchievementService(
		repository.NewAchievementRepository(db),
		repository.NewAttemptRepository(db),
		nil,
		testClock,
	)
	return svc, db
}

func seedAchievement(t *testing.T, db *gorm.DB, code, ruleJSON string) *model.Achievement {
	t.Helper()
	ach := &model.Achievement{
		Code:     code,
		Title:    code,
		RuleJSON: ruleJSON,
	}
	require.NoError(t, db.Create(ach).Error)
	return ach
}

// insertCompletedAttempt 直接落库一条已完成的尝试，步骤判定按 correctness 给定
func insertCompletedAttempt(t *testing.T, db *gorm.DB, userID, scenarioID string, correctness []*bool) string {
	t.Helper()
	now := testClock.Now()
	attempt := &model.Attempt{
		UserID:     userID,
		ScenarioID: scenarioID,
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: &now,
		Status:     model.AttemptCompleted,
	}
	for i, c := range correctness {
		attempt.Steps = append(attempt.Steps, model.AttemptStep{
			StepID:  model.GenerateUUID(),
			Ordinal: i + 1,
			Answer:  "{}",
		})
		attempt.Steps[i].IsCorrect = c
	}
	require.NoError(t, db.Create(attempt).Error)
	return attempt.ID
}

func boolPtr(b bool) *bool { return &b }

func TestFirstCompletionAwardedExactlyOnce(t *testing.T) {
	svc, db := newAchievementFixture(t)
	seedAchievement(t, db, "first_complete", `{"type":"FirstCompletion"}`)

	attemptID := insertCompletedAttempt(t, db, "user-1", model.GenerateUUID(), []*bool{boolPtr(true)})

	codes, err := svc.EvaluateAndAward("user-1", attemptID)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_complete"}, codes)

	// 重复评估不再授予
	codes, err = svc.EvaluateAndAward("user-1", attemptID)
	require.NoError(t, err)
	assert.Empty(t, codes)

	var count int64
	require.NoError(t, db.Model(&model.UserAchievement{}).Where("user_id = ?", "user-1").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFirstCompletionNotOnLaterCompletions(t *testing.T) {
	svc, db := newAchievementFixture(t)
	seedAchievement(t, db, "first_complete", `{"type":"FirstCompletion"}`)

	insertCompletedAttempt(t, db, "user-1", model.GenerateUUID(), nil)
	second := insertCompletedAttempt(t, db, "user-1", model.GenerateUUID(), nil)

	// 完成数已经是 2，谓词不成立
	codes, err := svc.EvaluateAndAward("user-1", second)
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestCompleteScenariosCountsAttemptsNotDistinctScenarios(t *testing.T) {
	svc, db := newAchievementFixture(t)
	seedAchievement(t, db, "three_completes", `{"type":"CompleteScenarios","count":3}`)

	// 同一场景反复完成也计数
	scenarioID := model.GenerateUUID()
	insertCompletedAttempt(t, db, "user-1", scenarioID, nil)
	second := insertCompletedAttempt(t, db, "user-1", scenarioID, nil)

	codes, err := svc.EvaluateAndAward("user-1", second)
	require.NoError(t, err)
	assert.Empty(t, codes)

	third := insertCompletedAttempt(t, db, "user-1", scenarioID, nil)
	codes, err = svc.EvaluateAndAward("user-1", third)
	require.NoError(t, err)
	assert.Equal(t, []string{"three_completes"}, codes)
}

func TestPerfectTestRequiresAllStepsCorrect(t *testing.T) {
	svc, db := newAchievementFixture(t)
	seedAchievement(t, db, "perfect_test", `{"type":"PerfectTest"}`)

	// 零步骤不算完美
	empty := insertCompletedAttempt(t, db, "user-a", model.GenerateUUID(), nil)
	codes, err := svc.EvaluateAndAward("user-a", empty)
	require.NoError(t, err)
	assert.Empty(t, codes)

	// 有待审核（NULL）的步骤不算
	pending := insertCompletedAttempt(t, db, "user-b", model.GenerateUUID(),
		[]*bool{boolPtr(true), nil})
	codes, err = svc.EvaluateAndAward("user-b", pending)
	require.NoError(t, err)
	assert.Empty(t, codes)

	// 有答错的步骤不算
	flawed := insertCompletedAttempt(t, db, "user-c", model.GenerateUUID(),
		[]*bool{boolPtr(true), boolPtr(false)})
	codes, err = svc.EvaluateAndAward("user-c", flawed)
	require.NoError(t, err)
	assert.Empty(t, codes)

	perfect := insertCompletedAttempt(t, db, "user-d", model.GenerateUUID(),
		[]*bool{boolPtr(true), boolPtr(true)})
	codes, err = svc.EvaluateAndAward("user-d", perfect)
	require.NoError(t, err)
	assert.Contains(t, codes, "perfect_test")
}

func TestUnknownRuleTypeNeverSatisfied(t *testing.T) {
	svc, db := newAchievementFixture(t)
	seedAchievement(t, db, "streak_master", `{"type":"Streak","count":5}`)

	attemptID := insertCompletedAttempt(t, db, "user-1", model.GenerateUUID(), []*bool{boolPtr(true)})

	codes, err := svc.EvaluateAndAward("user-1", attemptID)
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestMalformedRuleSkippedWithoutError(t *testing.T) {
	svc, db := newAchievementFixture(t)
	seedAchievement(t, db, "broken", `not json`)
	seedAchievement(t, db, "first_complete", `{"type":"FirstCompletion"}`)

	attemptID := insertCompletedAttempt(t, db, "user-1", model.GenerateUUID(), nil)

	// 坏规则跳过，好规则照常评估
	codes, err := svc.EvaluateAndAward("user-1", attemptID)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_complete"}, codes)
}

func TestAwardDuplicateIsNoOp(t *testing.T) {
	_, db := newAchievementFixture(t)
	repo := repository.NewAchievementRepository(db)
	ach := seedAchievement(t, db, "first_complete", `{"type":"FirstCompletion"}`)

	created, err := repo.Award("user-1", ach.ID, testClock.Now())
	require.NoError(t, err)
	assert.True(t, created)

	// 唯一索引仲裁：重复插入按已授予处理
	created, err = repo.Award("user-1", ach.ID, testClock.Now())
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, db.Model(&model.UserAchievement{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestInProgressAttemptsDoNotCount(t *testing.T) {
	svc, db := newAchievementFixture(t)
	seedAchievement(t, db, "first_complete", `{"type":"FirstCompletion"}`)

	open := &model.Attempt{
		UserID:     "user-1",
		ScenarioID: model.GenerateUUID(),
		StartedAt:  testClock.Now(),
		Status:     model.AttemptInProgress,
	}
	require.NoError(t, db.Create(open).Error)
	done := insertCompletedAttempt(t, db, "user-1", model.GenerateUUID(), nil)

	codes, err := svc.EvaluateAndAward("user-1", done)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_complete"}, codes)
}
