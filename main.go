package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/experiment"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/output"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/task"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/config"
)

var (
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")

	// 命令行覆盖配置文件中的对应项（只有显式给出时才生效）
	minutes     = flag.Float64("minutes", 0, "simulated duration in minutes")
	arrivalRate = flag.Float64("arrival", 0, "arrival rate per approach (veh/h)")
	cycleLength = flag.Float64("cycle", 0, "signal phase length (s)")
	workers     = flag.Int("workers", 1, "worker count")
	seed        = flag.Uint64("seed", 0, "random seed")
	backendKind = flag.String("backend", config.BackendSequential, "execution backend (sequential|domain|device)")
	blockSize   = flag.Int("block-size", config.DefaultBlockSize, "device backend block size")
	outputDir   = flag.String("output", config.DefaultOutputDir, "result directory")

	// 扩展性实验：逗号分隔的参数取值，如 1,2,4,8
	scaling      = flag.String("scaling", "", "run a scaling experiment over comma separated values")
	scalingParam = flag.String("scaling.param", experiment.ParamWorkerCount, "parameter varied by -scaling")
	// 后端对比实验：逗号分隔的后端名称，如 sequential,domain,device
	backends = flag.String("backends", "", "run the same config on each comma separated backend")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "intersection")
)

// loadConfig 读取配置文件并应用命令行覆盖
func loadConfig() config.Config {
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	} else {
		log.Info("no config file, using command line options")
	}
	c, err := config.Parse(file)
	if err != nil {
		log.Panicf("config file load err: %v", err)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "minutes":
			c.Control.Minutes = *minutes
		case "arrival":
			c.Traffic.ArrivalRate = *arrivalRate
		case "cycle":
			c.Signal.CycleLength = *cycleLength
		case "workers":
			c.Backend.WorkerCount = *workers
		case "seed":
			c.Seed = *seed
		case "backend":
			c.Backend.Kind = *backendKind
		case "block-size":
			c.Backend.BlockSize = *blockSize
		case "output":
			c.Output.Dir = *outputDir
		}
	})
	if c.Backend.WorkerCount == 0 {
		c.Backend.WorkerCount = *workers
	}
	return c
}

func parseValues(s string) []int {
	return lo.Map(strings.Split(s, ","), func(v string, _ int) int {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			log.Panicf("bad -scaling value %q: %v", v, err)
		}
		return n
	})
}

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", lo.Keys(logLevels))
	}

	// os.Exit不执行defer，所有清理在run中完成
	os.Exit(run())
}

// run 执行一次仿真或一组实验并写出结果
// 返回：进程退出码
func run() int {
	c := loadConfig()
	log.Infof("%+v", c)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case *scaling != "":
		results, err := experiment.RunScaling(runCtx, c, *scalingParam, parseValues(*scaling))
		return report(results, err)
	case *backends != "":
		kinds := lo.Map(strings.Split(*backends, ","), func(k string, _ int) string {
			return strings.TrimSpace(k)
		})
		results, err := experiment.RunBackends(runCtx, c, kinds)
		return report(results, err)
	}

	t, err := task.NewContext(c)
	if err != nil {
		log.Errorf("init simulation: %v", err)
		return 1
	}
	defer t.Close()
	res, runErr := t.Run(runCtx)
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		log.Warnf("run interrupted after %d steps, saving partial result", res.ExtraStats.Steps)
	default:
		log.Errorf("run aborted: %v", runErr)
	}
	w, err := output.Write(context.Background(), t.RuntimeConfig().All.Output, res, t.Recorder().Samples())
	if err != nil {
		log.Errorf("write result: %v", err)
	}
	log.Infof("run %s: %d vehicles completed, avg travel %.2fs, throughput %.2f veh/min",
		w.RunID, res.VehiclesCompleted, res.AvgTravelTime, res.ThroughputVehPerMin)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return 1
	}
	return 0
}

// report 输出并写出一组实验结果（包括被取消或中止的那次运行的部分结果）
func report(results []*task.Result, err error) int {
	if err != nil {
		log.Errorf("experiment: %v", err)
	}
	speedup := experiment.Speedup(results)
	for i, res := range results {
		log.Infof("#%d backend=%s workers=%d wall=%.3fs speedup=%.2f completed=%d",
			i, res.Backend, res.ExtraStats.WorkerCount, res.WallTimeSeconds, speedup[i], res.VehiclesCompleted)
		if _, werr := output.Write(context.Background(), res.Config.Output, res, nil); werr != nil {
			log.Errorf("write result: %v", werr)
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return 1
	}
	return 0
}
