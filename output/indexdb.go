package output

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// IndexDB 运行索引，每次运行一行，便于跨运行比较后端与参数
type IndexDB struct {
	db *sql.DB
}

// RunRow 运行索引中的一行
type RunRow struct {
	RunID               string
	CreatedAt           time.Time
	Label               string
	Backend             string
	Degraded            bool
	WorkerCount         int
	Seed                uint64
	WallTimeSeconds     float64
	VehiclesCompleted   int64
	AvgTravelTime       float64
	ThroughputVehPerMin float64
	ResultPath          string
}

// OpenIndex 打开（必要时创建）sqlite运行索引
func OpenIndex(path string) (*IndexDB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &IndexDB{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			label TEXT NOT NULL,
			backend TEXT NOT NULL,
			degraded INTEGER NOT NULL,
			worker_count INTEGER NOT NULL,
			seed TEXT NOT NULL,
			wall_time_seconds REAL NOT NULL,
			simulated_seconds REAL NOT NULL,
			vehicles_completed INTEGER NOT NULL,
			avg_travel_time REAL NOT NULL,
			avg_stops REAL NOT NULL,
			throughput_veh_per_min REAL NOT NULL,
			result_path TEXT NOT NULL,
			extra_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS runs_backend_idx ON runs(backend, worker_count);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun 记录一次运行
// 参数：report-运行汇总，resultPath-汇总JSON文件路径（可为空）
func (x *IndexDB) InsertRun(report Report, resultPath string) error {
	extra, err := json.Marshal(report.ExtraStats)
	if err != nil {
		return err
	}
	_, err = x.db.Exec(
		`INSERT INTO runs(run_id, created_at, label, backend, degraded, worker_count, seed,
			wall_time_seconds, simulated_seconds, vehicles_completed, avg_travel_time, avg_stops,
			throughput_veh_per_min, result_path, extra_json)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.CreatedAt.UTC().Format(time.RFC3339Nano), report.Label, report.Backend,
		boolToInt(report.ExtraStats.Degraded), report.ExtraStats.WorkerCount, fmt.Sprint(report.Config.Seed),
		report.WallTimeSeconds, report.TotalSimulatedTime, report.VehiclesCompleted, report.AvgTravelTime,
		report.AvgStopsPerVehicle, report.ThroughputVehPerMin, resultPath, string(extra),
	)
	return err
}

// Runs 按创建时间列出所有运行
func (x *IndexDB) Runs() ([]RunRow, error) {
	rows, err := x.db.Query(`SELECT run_id, created_at, label, backend, degraded, worker_count, seed,
		wall_time_seconds, vehicles_completed, avg_travel_time, throughput_veh_per_min, result_path
		FROM runs ORDER BY created_at, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunRow
	for rows.Next() {
		var (
			r        RunRow
			created  string
			degraded int
			seed     string
		)
		if err := rows.Scan(&r.RunID, &created, &r.Label, &r.Backend, &degraded, &r.WorkerCount, &seed,
			&r.WallTimeSeconds, &r.VehiclesCompleted, &r.AvgTravelTime, &r.ThroughputVehPerMin, &r.ResultPath); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, err
		}
		if _, err := fmt.Sscan(seed, &r.Seed); err != nil {
			return nil, err
		}
		r.Degraded = degraded != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (x *IndexDB) Close() error {
	return x.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
