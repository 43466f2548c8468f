package util

import "time"

// Clock 统一取当前时间，业务代码不直接调用 time.Now，测试注入固定时钟
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock 测试用固定时钟
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time {
	return c.T
}
