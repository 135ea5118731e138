package entity

import "fmt"

// Light 通行权
type Light int32

const (
	LightStop Light = iota
	LightGo
)

func (l Light) String() string {
	if l == LightGo {
		return "GO"
	}
	return "STOP"
}

// SignalState 某一时刻路口的通行权分配
type SignalState struct {
	Phase int32 // 当前相位，0:南北放行，1:东西放行
	NS    Light
	EW    Light
}

// Light 获取指定进口道的通行权
func (s SignalState) Light(d Direction) Light {
	if d.Group() == GroupNS {
		return s.NS
	}
	return s.EW
}

// Validate 检查冲突相位组是否恰有一个获得通行权
func (s SignalState) Validate() error {
	if (s.NS == LightGo) == (s.EW == LightGo) {
		return fmt.Errorf("%w: signal phase %d grants NS=%v EW=%v", ErrStateInvariant, s.Phase, s.NS, s.EW)
	}
	return nil
}
