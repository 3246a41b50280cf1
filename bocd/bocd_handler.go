package bocd

import (
	"context"

	"github.com/uyouii/weather-calibration/model"
	"github.com/uyouii/weather-calibration/utils"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

const (
	// without a change point for preSmoothSteps the checker is rebuilt from
	// the last reserveSteps points
	preSmoothSteps = 360
	reserveSteps   = 180
	// the checker never holds more than maxDataSize points
	maxDataSize = 1440
)

// BocdHandler feeds a whole series through an online checker, rebuilding
// the checker periodically so memory and per point cost stay bounded.
type BocdHandler struct {
	onlineChecker *BocdOnlineChecker
	opts          Options
	varx          float64

	datas        []float64
	pMeans       []float64
	pVars        []float64
	changePoints []*model.ChangePoint
}

func NewBocdHandler(varx, mean0 float64, opts Options) (*BocdHandler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &BocdHandler{
		onlineChecker: NewBocdOnlineChecker(varx, mean0, opts),
		opts:          opts,
		varx:          varx,
		datas:         []float64{},
		pMeans:        []float64{},
		pVars:         []float64{},
		changePoints:  []*model.ChangePoint{},
	}, nil
}

func (m *BocdHandler) rebalance(ctx context.Context) {
	logger := utils.GetLogger(ctx)

	lastChangePoint, ok := m.onlineChecker.LastChangePoint()
	size := m.onlineChecker.DataSize()
	needRebalance := (ok && len(m.datas)-lastChangePoint.Index > preSmoothSteps) ||
		(!ok && size > preSmoothSteps) || size > maxDataSize
	if !needRebalance {
		return
	}

	start := len(m.datas) - reserveSteps
	reserveDatas := m.datas[start:]
	mean0 := stat.Mean(reserveDatas, nil)

	newOnlineChecker := NewBocdOnlineChecker(m.varx, mean0, m.opts)
	newOnlineChecker.offset = start
	for _, x := range reserveDatas {
		newOnlineChecker.AppendPoint(x)
	}
	m.onlineChecker = newOnlineChecker
	logger.Debug("rebuilt bocd online checker", zap.Int("from", start), zap.Float64("mean0", mean0))
}

// AppendPoint returns a change point the first time it is confirmed.
func (m *BocdHandler) AppendPoint(ctx context.Context, x float64) (*model.ChangePoint, bool) {
	m.rebalance(ctx)

	changePoint, found := m.onlineChecker.AppendPoint(x)
	m.datas = append(m.datas, x)
	m.pMeans = append(m.pMeans, lastOf(m.onlineChecker.GetPredictionMeans()))
	m.pVars = append(m.pVars, lastOf(m.onlineChecker.GetPredictionVariances()))

	if !found {
		return nil, false
	}
	// a rebuilt checker may confirm an already reported change again
	if n := len(m.changePoints); n > 0 && m.changePoints[n-1].Index >= changePoint.Index {
		return nil, false
	}
	utils.GetLogger(ctx).Debug("find new change point", zap.Any("changePoint", changePoint))
	m.changePoints = append(m.changePoints, changePoint)
	return changePoint, true
}

func (m *BocdHandler) GetPredictionMeans() []float64 {
	return m.pMeans
}

func (m *BocdHandler) GetPredictionVariances() []float64 {
	return m.pVars
}

func (m *BocdHandler) GetChangePoints() []*model.ChangePoint {
	return m.changePoints
}

func lastOf(values []float64) float64 {
	return values[len(values)-1]
}
