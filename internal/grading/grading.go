package grading

import (
	"encoding/json"
	"fmt"
	"strings"

	"questor_backend/internal/model"
	"questor_backend/internal/util"
)

// Result 自动评分结果。AutoGradable=false 表示该步骤需要人工审核，不计分
type Result struct {
	AutoGradable bool
	Correct      bool
	Score        int
}

type singleContent struct {
	Correct *string `json:"correct"`
}

type singleAnswer struct {
	Choice *string `json:"choice"`
}

type multiContent struct {
	Correct []string `json:"correct"`
}

type multiAnswer struct {
	Choices []string `json:"choices"`
}

type shortAnswerContent struct {
	Keywords []string `json:"keywords"`
}

type shortAnswerText struct {
	Text *string `json:"text"`
}

// Grade 纯函数：按步骤类型对答案评分，不做任何 I/O。
// 内容或答案 JSON 结构不合法返回校验错误，与"答错"严格区分。
func Grade(stepType model.StepType, content, answer string, maxScore int) (Result, error) {
	switch stepType {
	case model.StepText:
		// 阅读类步骤，无需评分
		return Result{AutoGradable: false}, nil

	case model.StepSingle:
		var c singleContent
		if err := json.Unmarshal([]byte(content), &c); err != nil || c.Correct == nil {
			return Result{}, fmt.Errorf("%w: single_choice content", util.ErrMalformedContent)
		}
		var a singleAnswer
		if err := json.Unmarshal([]byte(answer), &a); err != nil || a.Choice == nil {
			return Result{}, fmt.Errorf("%w: single_choice requires \"choice\"", util.ErrMalformedAnswer)
		}
		ok := strings.EqualFold(*c.Correct, *a.Choice)
		return Result{AutoGradable: true, Correct: ok, Score: scoreIf(ok, maxScore)}, nil

	case model.StepMulti:
		var c multiContent
		if err := json.Unmarshal([]byte(content), &c); err != nil || c.Correct == nil {
			return Result{}, fmt.Errorf("%w: multi_choice content", util.ErrMalformedContent)
		}
		var a multiAnswer
		if err := json.Unmarshal([]byte(answer), &a); err != nil || a.Choices == nil {
			return Result{}, fmt.Errorf("%w: multi_choice requires \"choices\"", util.ErrMalformedAnswer)
		}
		ok := foldSetEqual(c.Correct, a.Choices)
		return Result{AutoGradable: true, Correct: ok, Score: scoreIf(ok, maxScore)}, nil

	case model.StepShortAnswer:
		var c shortAnswerContent
		if err := json.Unmarshal([]byte(content), &c); err != nil || c.Keywords == nil {
			return Result{}, fmt.Errorf("%w: short_answer content", util.ErrMalformedContent)
		}
		var a shortAnswerText
		if err := json.Unmarshal([]byte(answer), &a); err != nil || a.Text == nil {
			return Result{}, fmt.Errorf("%w: short_answer requires \"text\"", util.ErrMalformedAnswer)
		}
		text := strings.ToLower(*a.Text)
		ok := true
		for _, kw := range c.Keywords {
			if !strings.Contains(text, strings.ToLower(kw)) {
				ok = false
				break
			}
		}
		// 关键词全中得满分，否则给 1/3 参与分
		score := maxScore
		if !ok {
			score = maxScore / 3
		}
		return Result{AutoGradable: true, Correct: ok, Score: score}, nil

	default:
		return Result{}, fmt.Errorf("%w: %q", util.ErrUnknownStepType, stepType)
	}
}

func scoreIf(ok bool, maxScore int) int {
	if ok {
		return maxScore
	}
	return 0
}

// foldSetEqual 大小写无关的集合相等，顺序无关、无部分给分
func foldSetEqual(want, got []string) bool {
	wantSet := make(map[string]struct{}, len(want))
	for _, w := range want {
		wantSet[strings.ToLower(w)] = struct{}{}
	}
	gotSet := make(map[string]struct{}, len(got))
	for _, g := range got {
		gotSet[strings.ToLower(g)] = struct{}{}
	}
	if len(wantSet) != len(gotSet) {
		return false
	}
	for k := range wantSet {
		if _, ok := gotSet[k]; !ok {
			return false
		}
	}
	return true
}
