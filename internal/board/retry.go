package board

import (
	"math/rand"
	"time"
)

// 重连间隔：第 0 次立即重试，之后 2s / 10s / 30s，第 4 次起固定 60s 并加 ±5s 抖动
var retrySchedule = []time.Duration{0, 2 * time.Second, 10 * time.Second, 30 * time.Second}

const (
	retryCeiling = 60 * time.Second
	retryJitter  = 5 // 秒
)

// RetryPolicy 无限重连策略，不会返回“放弃”
type RetryPolicy struct {
	// rnd 返回 [0, n) 的整数，测试时可替换
	rnd func(n int) int
}

// NewRetryPolicy 创建默认重连策略
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{rnd: rand.Intn}
}

// NextDelay 返回第 attempt 次重连前的等待时间（attempt 从 0 开始）
// 每次调用都重新抽取抖动
func (p *RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt < len(retrySchedule) {
		return retrySchedule[attempt]
	}
	rnd := p.rnd
	if rnd == nil {
		rnd = rand.Intn
	}
	jitter := rnd(2*retryJitter+1) - retryJitter
	return retryCeiling + time.Duration(jitter)*time.Second
}
