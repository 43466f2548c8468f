package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"questor_backend/internal/model"
	"questor_backend/internal/repository"
	"questor_backend/internal/util"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Scenario{},
		&model.ScenarioStep{},
		&model.Attempt{},
		&model.AttemptStep{},
		&model.Achievement{},
		&model.UserAchievement{},
	))
	return db
}

type recordingListener struct {
	events []AttemptCompletedEvent
	codes  []string
	err    error
}

func (l *recordingListener) AttemptCompleted(evt AttemptCompletedEvent) ([]string, error) {
	l.events = append(l.events, evt)
	return l.codes, l.err
}

var testClock = util.FixedClock{T: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

func newAttemptFixture(t *testing.T) (*AttemptService, *recordingListener, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	listener := &recordingListener{codes: []string{"first_complete"}}
	svc := NewAttemptService(
		repository.NewAttemptRepository(db),
		repository.NewScenarioRepository(db),
		listener,
		testClock,
	)
	return svc, listener, db
}

func seedScenario(t *testing.T, db *gorm.DB, published bool) *model.Scenario {
	t.Helper()
	scenario := &model.Scenario{
		Title:       "Git 基础测验",
		Slug:        "git-basics-" + model.GenerateUUID()[:8],
		IsPublished: published,
		Steps: []model.ScenarioStep{
			{Order: 1, StepType: model.StepSingle, Title: "默认分支", Content: `{"correct":"main"}`, MaxScore: 10},
			{Order: 2, StepType: model.StepMulti, Title: "提交命令", Content: `{"correct":["add","commit"]}`, MaxScore: 10},
			{Order: 3, StepType: model.StepShortAnswer, Title: "什么是分支", Content: `{"keywords":["git","branch"]}`, MaxScore: 9},
		},
	}
	require.NoError(t, db.Create(scenario).Error)
	return scenario
}

func TestStartRequiresPublishedScenario(t *testing.T) {
	svc, _, db := newAttemptFixture(t)

	draft := seedScenario(t, db, false)
	_, err := svc.Start("user-1", draft.ID)
	assert.ErrorIs(t, err, util.ErrScenarioNotFound)

	_, err = svc.Start("user-1", model.GenerateUUID())
	assert.ErrorIs(t, err, util.ErrScenarioNotFound)
}

func TestStartSnapshotsStepsInOrder(t *testing.T) {
	svc, _, db := newAttemptFixture(t)
	scenario := seedScenario(t, db, true)

	attemptID, err := svc.Start("user-1", scenario.ID)
	require.NoError(t, err)

	view, err := svc.GetView("user-1", attemptID)
	require.NoError(t, err)

	assert.Equal(t, string(model.AttemptInProgress), view.Status)
	assert.True(t, view.StartedAt.Equal(testClock.Now()))
	assert.Equal(t, 0, view.Score)
	require.Len(t, view.Steps, 3)
	for i, step := range view.Steps {
		assert.Equal(t, i+1, step.Ordinal)
		assert.Equal(t, "{}", step.Answer)
		assert.Nil(t, step.IsCorrect)
	}
	assert.Equal(t, 10, view.Steps[0].MaxScore)
	assert.Equal(t, 9, view.Steps[2].MaxScore)
}

func TestSubmitAnswerGradesAndAccumulates(t *testing.T) {
	svc, _, db := newAttemptFixture(t)
	scenario := seedScenario(t, db, true)

	attemptID, err := svc.Start("user-1", scenario.ID)
	require.NoError(t, err)
	view, err := svc.GetView("user-1", attemptID)
	require.NoError(t, err)

	// 大小写不敏感的单选
	res, err := svc.SubmitAnswer("user-1", attemptID, view.Steps[0].StepID, `{"choice":"MAIN"}`)
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, 10, res.ScoreAwarded)

	// 多选顺序无关
	res, err = svc.SubmitAnswer("user-1", attemptID, view.Steps[1].StepID, `{"choices":["COMMIT","add"]}`)
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)

	// 简答：关键词全中得满分
	res, err = svc.SubmitAnswer("user-1", attemptID, view.Steps[2].StepID, `{"text":"A git branch is a movable pointer"}`)
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, 9, res.ScoreAwarded)

	view, err = svc.GetView("user-1", attemptID)
	require.NoError(t, err)
	assert.Equal(t, 29, view.Score)
}

func TestSubmitAnswerNeverLowersTotal(t *testing.T) {
	svc, _, db := newAttemptFixture(t)
	scenario := seedScenario(t, db, true)

	attemptID, err := svc.Start("user-1", scenario.ID)
	require.NoError(t, err)
	view, err := svc.GetView("user-1", attemptID)
	require.NoError(t, err)
	stepID := view.Steps[0].StepID

	res, err := svc.SubmitAnswer("user-1", attemptID, stepID, `{"choice":"main"}`)
	require.NoError(t, err)
	require.Equal(t, 10, res.ScoreAwarded)

	// 改成错误答案：步骤字段覆盖，但总分不回退
	res, err = svc.SubmitAnswer("user-1", attemptID, stepID, `{"choice":"master"}`)
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, 0, res.ScoreAwarded)

	view, err = svc.GetView("user-1", attemptID)
	require.NoError(t, err)
	assert.Equal(t, 10, view.Score)
	require.NotNil(t, view.Steps[0].IsCorrect)
	assert.False(t, *view.Steps[0].IsCorrect)
	assert.Equal(t, 0, view.Steps[0].ScoreAwarded)
	assert.Equal(t, `{"choice":"master"}`, view.Steps[0].Answer)
}

func TestSubmitAnswerPartialThenFullKeywords(t *testing.T) {
	svc, _, db := newAttemptFixture(t)
	scenario := seedScenario(t, db, true)

	attemptID, err := svc.Start("user-1", scenario.ID)
	require.NoError(t, err)
	view, err := svc.GetView("user-1", attemptID)
	require.NoError(t, err)
	stepID := view.Steps[2].StepID

	// 只命中部分关键词拿三分之一分
	res, err := svc.SubmitAnswer("user-1", attemptID, stepID, `{"text":"something about git"}`)
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, 3, res.ScoreAwarded)

	res, err = svc.SubmitAnswer("user-1", attemptID, stepID, `{"text":"a git branch"}`)
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, 9, res.ScoreAwarded)

	view, err = svc.GetView("user-1", attemptID)
	require.NoError(t, err)
	assert.Equal(t, 9, view.Score)
}

func TestSubmitAnswerValidation(t *testing.T) {
	svc, _, db := newAttemptFixture(t)
	scenario := seedScenario(t, db, true)

	attemptID, err := svc.Start("user-1", scenario.ID)
	require.NoError(t, err)
	view, err := svc.GetView("user-1", attemptID)
	require.NoError(t, err)

	// 超长负载
	huge := `{"text":"` + strings.Repeat("a", MaxAnswerBytes) + `"}`
	_, err = svc.SubmitAnswer("user-1", attemptID, view.Steps[0].StepID, huge)
	assert.ErrorIs(t, err, util.ErrAnswerTooLarge)

	// 结构不合法与答错严格区分
	_, err = svc.SubmitAnswer("user-1", attemptID, view.Steps[0].StepID, `{"wrong":"key"}`)
	assert.ErrorIs(t, err, util.ErrMalformedAnswer)

	// 不属于本次尝试的步骤
	_, err = svc.SubmitAnswer("user-1", attemptID, model.GenerateUUID(), `{"choice":"main"}`)
	assert.ErrorIs(t, err, util.ErrStepNotInAttempt)

	// 别人的尝试不可见
	_, err = svc.SubmitAnswer("user-2", attemptID, view.Steps[0].StepID, `{"choice":"main"}`)
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
}

func TestSubmitAnswerAfterFinishRejected(t *testing.T) {
	svc, _, db := newAttemptFixture(t)
	scenario := seedScenario(t, db, true)

	attemptID, err := svc.Start("user-1", scenario.ID)
	require.NoError(t, err)
	view, err := svc.GetView("user-1", attemptID)
	require.NoError(t, err)

	_, err = svc.SubmitAnswer("user-1", attemptID, view.Steps[0].StepID, `{"choice":"main"}`)
	require.NoError(t, err)

	_, err = svc.Finish("user-1", attemptID)
	require.NoError(t, err)

	_, err = svc.SubmitAnswer("user-1", attemptID, view.Steps[0].StepID, `{"choice":"master"}`)
	assert.ErrorIs(t, err, util.ErrAttemptFinished)

	// 分数保持不变
	view, err = svc.GetView("user-1", attemptID)
	require.NoError(t, err)
	assert.Equal(t, 10, view.Score)
}

func TestSubmitAnswerMissingDefinitionStoresUngraded(t *testing.T) {
	svc, _, db := newAttemptFixture(t)
	scenario := seedScenario(t, db, true)

	attemptID, err := svc.Start("user-1", scenario.ID)
	require.NoError(t, err)
	view, err := svc.GetView("user-1", attemptID)
	require.NoError(t, err)
	stepID := view.Steps[0].StepID

	// 作者删掉了步骤定义
	require.NoError(t, db.Delete(&model.ScenarioStep{}, "id = ?", stepID).Error)

	res, err := svc.SubmitAnswer("user-1", attemptID, stepID, `{"choice":"main"}`)
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, 0, res.ScoreAwarded)

	view, err = svc.GetView("user-1", attemptID)
	require.NoError(t, err)
	assert.Nil(t, view.Steps[0].IsCorrect)
	assert.Equal(t, `{"choice":"main"}`, view.Steps[0].Answer)
}

func TestFinishIsIdempotentAndFiresEventOnce(t *testing.T) {
	svc, listener, db := newAttemptFixture(t)
	scenario := seedScenario(t, db, true)

	attemptID, err := svc.Start("user-1", scenario.ID)
	require.NoError(t, err)
	view, err := svc.GetView("user-1", attemptID)
	require.NoError(t, err)

	_, err = svc.SubmitAnswer("user-1", attemptID, view.Steps[0].StepID, `{"choice":"main"}`)
	require.NoError(t, err)

	first, err := svc.Finish("user-1", attemptID)
	require.NoError(t, err)
	assert.Equal(t, 10, first.TotalScore)
	assert.Equal(t, []string{"first_complete"}, first.NewAchievements)
	require.Len(t, listener.events, 1)
	assert.Equal(t, attemptID, listener.events[0].AttemptID)
	assert.Equal(t, 10, listener.events[0].Score)
	assert.Equal(t, testClock.Now(), listener.events[0].FinishedAt)

	// 重复 Finish：无操作，不再发事件
	second, err := svc.Finish("user-1", attemptID)
	require.NoError(t, err)
	assert.Equal(t, 10, second.TotalScore)
	assert.Empty(t, second.NewAchievements)
	assert.Len(t, listener.events, 1)

	view, err = svc.GetView("user-1", attemptID)
	require.NoError(t, err)
	assert.Equal(t, string(model.AttemptCompleted), view.Status)
	require.NotNil(t, view.FinishedAt)
	assert.True(t, view.FinishedAt.Equal(testClock.Now()))
}

func TestFinishSucceedsWhenListenerFails(t *testing.T) {
	svc, listener, db := newAttemptFixture(t)
	listener.err = errors.New("rule backend down")
	scenario := seedScenario(t, db, true)

	attemptID, err := svc.Start("user-1", scenario.ID)
	require.NoError(t, err)

	res, err := svc.Finish("user-1", attemptID)
	require.NoError(t, err)
	assert.Empty(t, res.NewAchievements)

	view, err := svc.GetView("user-1", attemptID)
	require.NoError(t, err)
	assert.Equal(t, string(model.AttemptCompleted), view.Status)
}

func TestFinishUnknownAttempt(t *testing.T) {
	svc, _, _ := newAttemptFixture(t)

	_, err := svc.Finish("user-1", model.GenerateUUID())
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
}
