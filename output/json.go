// 运行结果的持久化：汇总JSON、逐步指标（zstd压缩的JSONL）、sqlite运行索引、MongoDB
// 只在仿真结束后调用，仿真核心不做任何I/O
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tsinghua-fib-lab/intersection-sim-oss/task"
)

// Report 写入JSON文件的运行汇总
type Report struct {
	RunID     string    `json:"run_id"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	*task.Result
}

// SaveResultAsJSON 将运行汇总写入output目录
// 参数：report-运行汇总，dir-输出目录
// 返回：文件路径，文件名为<backend>_<时间戳>.json，重名时追加序号
func SaveResultAsJSON(report Report, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	base := fmt.Sprintf("%s_%s", report.Backend, report.CreatedAt.Format("20060102_150405"))
	path := filepath.Join(dir, base+".json")
	for i := 1; ; i++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if os.IsExist(err) {
			path = filepath.Join(dir, fmt.Sprintf("%s_%d.json", base, i))
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(b); err != nil {
			_ = f.Close()
			return "", err
		}
		return path, f.Close()
	}
}

// LoadReport 读取SaveResultAsJSON写出的文件
func LoadReport(path string) (Report, error) {
	var r Report
	b, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	err = json.Unmarshal(b, &r)
	return r, err
}
