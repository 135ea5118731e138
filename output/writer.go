package output

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/metrics"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/task"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/config"
)

// Written 一次运行写出的位置
type Written struct {
	RunID       string
	ResultPath  string // 汇总JSON
	SamplesPath string // 逐步指标jsonl.zst，未启用时为空
	Indexed     bool   // 已写入sqlite运行索引
	Mongo       bool   // 已写入MongoDB
}

// NewRunID 生成运行ID
func NewRunID() string {
	return uuid.NewString()
}

// Write 按输出配置写出一次运行的结果
// 功能：汇总JSON总是写出；逐步指标、sqlite索引、MongoDB按配置写出
// 参数：ctx-取消信号，out-输出配置，res-运行汇总，samples-逐步指标
// 返回：写出位置；任一输出失败时返回错误，已写出的部分保留
// 算法说明：
// 1. 生成运行ID，写汇总JSON
// 2. 启用逐步指标时，写<汇总文件名>.samples.jsonl.zst
// 3. 配置了索引库时，插入一行运行记录
// 4. 配置了MongoDB时，按批写入逐步指标
func Write(ctx context.Context, out config.Output, res *task.Result, samples []metrics.Sample) (Written, error) {
	report := Report{
		RunID:     NewRunID(),
		Label:     res.Config.Label,
		CreatedAt: time.Now(),
		Result:    res,
	}
	w := Written{RunID: report.RunID}

	path, err := SaveResultAsJSON(report, out.Dir)
	if err != nil {
		return w, fmt.Errorf("save result: %w", err)
	}
	w.ResultPath = path
	log.Infof("result saved to %s", path)

	if out.Samples {
		ext := filepath.Ext(path)
		sw := NewJSONLZstdWriter(path[:len(path)-len(ext)] + ".samples.jsonl.zst")
		for _, s := range samples {
			if err := sw.Write(s); err != nil {
				_ = sw.Close()
				return w, fmt.Errorf("write samples: %w", err)
			}
		}
		if err := sw.Close(); err != nil {
			return w, fmt.Errorf("write samples: %w", err)
		}
		w.SamplesPath = sw.Path()
		log.Infof("%d samples saved to %s", sw.Count(), w.SamplesPath)
	}

	if out.IndexDB != "" {
		idx, err := OpenIndex(out.IndexDB)
		if err != nil {
			return w, fmt.Errorf("open index %s: %w", out.IndexDB, err)
		}
		err = idx.InsertRun(report, path)
		if cerr := idx.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return w, fmt.Errorf("index run: %w", err)
		}
		w.Indexed = true
	}

	if out.Mongo != nil {
		sink := NewMongoSink(*out.Mongo)
		err := sink.WriteSamples(ctx, report.RunID, samples)
		if cerr := sink.Close(ctx); err == nil {
			err = cerr
		}
		if err != nil {
			return w, fmt.Errorf("write samples to mongo: %w", err)
		}
		w.Mongo = true
	}
	return w, nil
}
