// 随机数引擎，包装了golang.org/x/exp/rand，提供了仿真中常用的随机数生成方法
package randengine

import (
	"flag"
	"log"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎（非线程安全）
// 功能：提供可复现的随机数序列，一个Engine对应一条独立的随机数流
// 说明：仿真中每个进口道持有一个Engine，按固定顺序抽取，保证与执行后端无关
type Engine struct {
	*rand.Rand // 底层随机数生成器
}

// New 创建随机数引擎
// 功能：使用 seed+种子偏移量 初始化随机数源
// 参数：seed-随机数种子
// 返回：随机数引擎指针
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// StreamSeed 由全局种子派生第index条随机数流的种子
// 说明：使用splitmix64的混合函数，避免相邻流之间的相关性
func StreamSeed(seed uint64, index int) uint64 {
	z := seed + uint64(index+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Poisson 按泊松分布抽取非负整数
// 功能：抽取均值为lambda的泊松随机数
// 参数：lambda-均值
// 返回：抽取结果；lambda<=0时直接返回0且不消耗随机数
func (e *Engine) Poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	return int(distuv.Poisson{Lambda: lambda, Src: e.Rand}.Rand())
}

// DiscreteDistribution 按给定概率分布生成随机数
// 功能：根据权重数组生成离散分布的随机数
// 参数：weight-权重数组，每个元素表示对应索引的概率权重
// 返回：随机生成的索引值（0到len(weight)-1）
// 算法说明：
// 1. 计算总权重
// 2. 在[0, 总权重)范围内生成随机数
// 3. 累积概率直到超过随机数，返回对应索引
func (e *Engine) DiscreteDistribution(weight []float64) int32 {
	random := .0
	for _, w := range weight {
		random += w
	}
	random *= e.Float64()
	sum := 0.
	for i, w := range weight {
		sum += w
		if sum > random {
			return int32(i)
		}
	}
	log.Panicf("randengine: DiscreteDistribution: sum: %f random: %f", sum, random)
	return -1
}
