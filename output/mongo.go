package output

import (
	"context"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/metrics"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoBatchSize 每次InsertMany的文档数
const mongoBatchSize = 1000

// sampleDoc MongoDB中的逐步指标文档
type sampleDoc struct {
	RunID          string  `bson:"run_id"`
	Step           int32   `bson:"step"`
	T              float64 `bson:"t"`
	Phase          int32   `bson:"phase"`
	Arrived        int     `bson:"arrived"`
	Rejected       int     `bson:"rejected"`
	Exited         int     `bson:"exited"`
	Created        int64   `bson:"cumulative_created"`
	CumExited      int64   `bson:"cumulative_exited"`
	InStore        int     `bson:"in_store"`
	QueueLength    []int   `bson:"queue_length"`
	MeanWait       float64 `bson:"mean_wait"`
	MeanTravelTime float64 `bson:"mean_travel_time"`
	MeanStops      float64 `bson:"mean_stops"`
}

func newSampleDoc(runID string, s metrics.Sample) sampleDoc {
	return sampleDoc{
		RunID:          runID,
		Step:           s.Step,
		T:              s.T,
		Phase:          s.Phase,
		Arrived:        s.Arrived,
		Rejected:       s.Rejected,
		Exited:         s.Exited,
		Created:        s.CumulativeCreated,
		CumExited:      s.CumulativeExited,
		InStore:        s.InStore,
		QueueLength:    s.QueueLength,
		MeanWait:       s.MeanWait,
		MeanTravelTime: s.MeanTravelTime,
		MeanStops:      s.MeanStops,
	}
}

// MongoSink 把逐步指标写入MongoDB集合
type MongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoSink 连接MongoDB并定位输出集合
func NewMongoSink(path config.MongoPath) *MongoSink {
	client := mongoutil.NewClient(path.URI)
	return &MongoSink{
		client: client,
		coll:   client.Database(path.GetDb()).Collection(path.GetColl()),
	}
}

// WriteSamples 按批写入一次运行的全部逐步指标
func (m *MongoSink) WriteSamples(ctx context.Context, runID string, samples []metrics.Sample) error {
	docs := lo.Map(samples, func(s metrics.Sample, _ int) any {
		return newSampleDoc(runID, s)
	})
	for _, batch := range lo.Chunk(docs, mongoBatchSize) {
		if _, err := m.coll.InsertMany(ctx, batch, options.InsertMany().SetOrdered(true)); err != nil {
			return err
		}
	}
	log.Infof("wrote %d samples to %s.%s", len(samples), m.coll.Database().Name(), m.coll.Name())
	return nil
}

// CountSamples 一次运行已写入的逐步指标数
func (m *MongoSink) CountSamples(ctx context.Context, runID string) (int64, error) {
	return m.coll.CountDocuments(ctx, bson.M{"run_id": runID})
}

// DeleteRun 删除一次运行的全部逐步指标
func (m *MongoSink) DeleteRun(ctx context.Context, runID string) error {
	_, err := m.coll.DeleteMany(ctx, bson.M{"run_id": runID})
	return err
}

func (m *MongoSink) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
