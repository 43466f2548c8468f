package grading

import (
	"testing"

	"questor_backend/internal/model"
	"questor_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradeText(t *testing.T) {
	res, err := Grade(model.StepText, `{"md":"## SOLID"}`, `{"anything":1}`, 10)
	require.NoError(t, err)
	assert.False(t, res.AutoGradable)
	assert.False(t, res.Correct)
	assert.Equal(t, 0, res.Score)
}

func TestGradeSingleChoice(t *testing.T) {
	content := `{"question":"Capital of France?","options":["Paris","Rome"],"correct":"paris"}`

	res, err := Grade(model.StepSingle, content, `{"choice":"Paris"}`, 5)
	require.NoError(t, err)
	assert.True(t, res.AutoGradable)
	assert.True(t, res.Correct)
	assert.Equal(t, 5, res.Score)

	res, err = Grade(model.StepSingle, content, `{"choice":"Rome"}`, 5)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, 0, res.Score)
}

func TestGradeMultiChoice(t *testing.T) {
	content := `{"correct":["b","A"]}`

	res, err := Grade(model.StepMulti, content, `{"choices":["a","B"]}`, 5)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 5, res.Score)

	// 缺选不给分
	res, err = Grade(model.StepMulti, `{"correct":["a","b"]}`, `{"choices":["a"]}`, 5)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, 0, res.Score)

	// 多选同样不给分
	res, err = Grade(model.StepMulti, `{"correct":["a"]}`, `{"choices":["a","b"]}`, 5)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, 0, res.Score)
}

func TestGradeShortAnswer(t *testing.T) {
	content := `{"keywords":["git","branch"]}`

	res, err := Grade(model.StepShortAnswer, content, `{"text":"use Git to create a BRANCH"}`, 9)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 9, res.Score)

	// 关键词全缺：1/3 参与分
	res, err = Grade(model.StepShortAnswer, content, `{"text":"no idea"}`, 9)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, 3, res.Score)

	// 只中一个关键词：仍是参与分，不按比例
	res, err = Grade(model.StepShortAnswer, content, `{"text":"git something"}`, 9)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, 3, res.Score)
}

func TestGradeMalformedPayloads(t *testing.T) {
	_, err := Grade(model.StepSingle, `{"correct":"a"}`, `{"wrong":"shape"}`, 5)
	assert.ErrorIs(t, err, util.ErrMalformedAnswer)

	_, err = Grade(model.StepSingle, `{"correct":"a"}`, `not json`, 5)
	assert.ErrorIs(t, err, util.ErrMalformedAnswer)

	_, err = Grade(model.StepMulti, `{}`, `{"choices":["a"]}`, 5)
	assert.ErrorIs(t, err, util.ErrMalformedContent)

	_, err = Grade(model.StepShortAnswer, `{"keywords":["x"]}`, `{}`, 5)
	assert.ErrorIs(t, err, util.ErrMalformedAnswer)

	_, err = Grade(model.StepType("essay"), `{}`, `{}`, 5)
	assert.ErrorIs(t, err, util.ErrUnknownStepType)
}
