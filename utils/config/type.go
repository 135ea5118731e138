package config

// ControlStep 仿真时间范围和间隔，由RuntimeConfig根据运行时长推导
type ControlStep struct {
	Start    int32   // 开始步数
	Total    int32   // 总步数
	Interval float64 // 每步的时间间隔（秒）
}

// Control 模拟过程控制配置
type Control struct {
	Minutes float64 `yaml:"minutes"`      // 仿真总时长（分钟）
	DT      float64 `yaml:"dt,omitempty"` // 每步的时间间隔（秒）
}

// TurnRatio 新车的转向比例（直行/右转/左转），只需相对大小
type TurnRatio struct {
	Straight float64 `yaml:"straight"`
	Right    float64 `yaml:"right"`
	Left     float64 `yaml:"left"`
}

// Weights 转换为按Movement顺序排列的权重
func (r TurnRatio) Weights() []float64 {
	return []float64{r.Straight, r.Right, r.Left}
}

// Traffic 交通需求配置
type Traffic struct {
	ArrivalRate        float64    `yaml:"arrival_rate"`                    // 每个进口道的到达率（辆/小时）
	MaxVehiclesPerLane int        `yaml:"max_vehicles_per_lane,omitempty"` // 每条车道最大车辆数，0为不限
	SplitTurnLanes     bool       `yaml:"split_turn_lanes,omitempty"`      // 是否拆分直行/转向车道
	TurnRatio          *TurnRatio `yaml:"turn_ratio,omitempty"`            // 转向比例
}

// Signal 信控配置
type Signal struct {
	CycleLength float64 `yaml:"cycle_length"` // 每个相位的时长（秒）
}

// Road 车道几何与运动学常量
type Road struct {
	LaneLength    float64 `yaml:"lane_length,omitempty"`     // 车道长度（米）
	FreeFlowSpeed float64 `yaml:"free_flow_speed,omitempty"` // 自由流速度（米/秒）
	MaxAccel      float64 `yaml:"max_accel,omitempty"`       // 最大加速度（米/秒²）
	SafeGap       float64 `yaml:"safe_gap,omitempty"`        // 跟车安全距离（米）
	ExitDistance  float64 `yaml:"exit_distance,omitempty"`   // 越过停车线后驶离路口的距离（米）
}

// 执行后端名称
const (
	BackendSequential = "sequential"
	BackendDomain     = "domain"
	BackendDevice     = "device"
)

// Backend 执行后端配置
type Backend struct {
	Kind        string `yaml:"kind,omitempty"`       // sequential|domain|device
	WorkerCount int    `yaml:"worker_count"`         // 并行执行单元数
	BlockSize   int    `yaml:"block_size,omitempty"` // device后端每批次的车辆数
}

// MongoPath 指定MongoDB输出位置
type MongoPath struct {
	URI string `yaml:"uri"` // MongoDB连接字符串
	DB  string `yaml:"db"`  // 数据库名
	Col string `yaml:"col"` // 集合名
}

// GetDb 获取数据库名
func (p MongoPath) GetDb() string {
	return p.DB
}

// GetColl 获取集合名
func (p MongoPath) GetColl() string {
	return p.Col
}

// Output 输出配置，由外部协作者（main）使用，仿真核心不做任何持久化
type Output struct {
	Dir     string     `yaml:"dir,omitempty"`      // 结果目录
	Samples bool       `yaml:"samples,omitempty"`  // 是否写出逐步指标（jsonl.zst）
	IndexDB string     `yaml:"index_db,omitempty"` // sqlite运行索引路径，为空则不写
	Mongo   *MongoPath `yaml:"mongo,omitempty"`    // 逐步指标写入MongoDB，为空则不写
}

// Config YAML配置文件的根结构
type Config struct {
	Control Control `yaml:"control"`
	Traffic Traffic `yaml:"traffic"`
	Signal  Signal  `yaml:"signal"`
	Road    Road    `yaml:"road,omitempty"`
	Backend Backend `yaml:"backend"`
	Seed    uint64  `yaml:"seed"`
	Label   string  `yaml:"label,omitempty"` // 场景描述
	Output  Output  `yaml:"output,omitempty"`
}
