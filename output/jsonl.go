package output

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// JSONLZstdWriter zstd压缩的JSONL文件写入器，每条记录一行
// 说明：第一次写入时创建文件，Close后文件才是完整的zstd帧
type JSONLZstdWriter struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	n   int
}

// NewJSONLZstdWriter 创建写入器
// 参数：path-输出文件路径，所在目录不存在时在第一次写入时创建
// 返回：写入器，尚未打开文件
func NewJSONLZstdWriter(path string) *JSONLZstdWriter {
	return &JSONLZstdWriter{path: path}
}

// Path 文件路径
func (w *JSONLZstdWriter) Path() string {
	return w.path
}

// Count 已写入的记录数
func (w *JSONLZstdWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Write 写入一条记录
// 功能：将v编码为JSON并追加一行；第一次调用时打开文件并创建zstd编码器
// 参数：v-任意可JSON编码的值
// 返回：打开文件、编码或写入失败时返回错误
func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		if err := w.openLocked(); err != nil {
			return err
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.n++
	return nil
}

// Close 刷新缓冲、结束zstd帧并关闭文件
// 返回：第一个出现的错误；从未写入时不创建文件，直接返回nil
func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) openLocked() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		err1 = w.w.Flush()
	}
	if w.enc != nil {
		if err := w.enc.Close(); err1 == nil {
			err1 = err
		}
		w.enc = nil
	}
	if w.f != nil {
		if err := w.f.Close(); err1 == nil {
			err1 = err
		}
		w.f = nil
	}
	w.w = nil
	return err1
}

// ReadJSONLZstd 逐行读取zstd压缩的JSONL文件
// 参数：path-文件路径，fn-每行的处理函数，返回错误时停止读取
func ReadJSONLZstd(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}
