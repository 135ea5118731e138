package metrics

import "time"

// Timer 墙钟计时器
type Timer struct {
	start   time.Time
	elapsed time.Duration
	running bool
}

// StartTimer 创建并启动计时器
func StartTimer() *Timer {
	return &Timer{start: time.Now(), running: true}
}

// Stop 停止计时并返回总耗时，重复调用返回第一次停止时的耗时
func (t *Timer) Stop() time.Duration {
	if t.running {
		t.elapsed = time.Since(t.start)
		t.running = false
	}
	return t.elapsed
}

// Elapsed 当前耗时，计时器运行中时返回截至当前的耗时
func (t *Timer) Elapsed() time.Duration {
	if t.running {
		return time.Since(t.start)
	}
	return t.elapsed
}
