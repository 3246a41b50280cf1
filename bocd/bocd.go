package bocd

import (
	"math"

	"github.com/uyouii/weather-calibration/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// BocdOnlineChecker runs Bayesian online changepoint detection with a
// Gaussian likelihood of known variance varX and a Gaussian prior on the
// segment mean centred at mean0.
//
// After every point the checker holds the run length distribution: index r is
// the probability that the last r points form the current segment.
type BocdOnlineChecker struct {
	varX  float64 // known variance
	mean0 float64 // mean of the pre data
	opts  Options

	// offset is the series index of datas[0]
	offset int

	datas           []float64
	means           []float64
	invVariances    []float64 // 1 / Variance
	lastLogRunProbs []float64 // normalized

	pMeans []float64 // prediction mean
	pVars  []float64 // prediction var

	changePoints []*model.ChangePoint
}

func NewBocdOnlineChecker(varx, mean0 float64, opts Options) *BocdOnlineChecker {
	return &BocdOnlineChecker{
		varX:  varx,
		mean0: mean0,
		opts:  opts,

		datas:           []float64{},
		means:           []float64{mean0},
		invVariances:    []float64{1 / varx},
		lastLogRunProbs: []float64{0},

		pMeans: []float64{},
		pVars:  []float64{},

		changePoints: []*model.ChangePoint{},
	}
}

// AppendPoint records the prediction for x, folds x into the run length
// distribution and reports a change point newly confirmed by x.
func (b *BocdOnlineChecker) AppendPoint(x float64) (*model.ChangePoint, bool) {
	// 1. predict x from the current run length distribution
	mean, variance := b.prediction()
	b.pMeans = append(b.pMeans, mean)
	b.pVars = append(b.pVars, variance)

	// 2. predictive log density of x under every run length
	logPreProbs := b.logOfPreProb(x)

	// 3. the segment either grows or ends after x
	logh, log1mh := math.Log(b.opts.Hazard), math.Log1p(-b.opts.Hazard)
	logGrowthProbs := make([]float64, len(logPreProbs))
	logEndProbs := make([]float64, len(logPreProbs))
	for i := range logPreProbs {
		joint := logPreProbs[i] + b.lastLogRunProbs[i]
		logGrowthProbs[i] = joint + log1mh
		logEndProbs[i] = joint + logh
	}
	logRunProbs := append([]float64{floats.LogSumExp(logEndProbs)}, logGrowthProbs...)
	b.lastLogRunProbs = normalizeLog(logRunProbs)

	// 4. posterior segment means
	b.updateGuassianParams(x)
	b.datas = append(b.datas, x)

	return b.checkChangePoints()
}

func (b *BocdOnlineChecker) checkChangePoints() (*model.ChangePoint, bool) {
	runLenProb := listExp(b.lastLogRunProbs)
	last := len(b.datas) - 1

	for r := 1; r < len(runLenProb) && r <= b.opts.ObserveWindow; r++ {
		if runLenProb[r] < b.opts.Threshold {
			continue
		}
		loc := last - r + 1
		if loc <= 0 {
			break
		}

		changePoint := &model.ChangePoint{
			Index: b.offset + loc,
			Value: b.datas[loc],
		}
		if b.datas[loc] > b.datas[loc-1] {
			changePoint.ChangePointType = model.IncreaseChangePoint
		} else {
			changePoint.ChangePointType = model.DecreaseChangePoint
		}

		if lastChangePoint, ok := b.LastChangePoint(); ok && lastChangePoint.Index == changePoint.Index {
			return nil, false
		}
		b.changePoints = append(b.changePoints, changePoint)
		return changePoint, true
	}
	return nil, false
}

func (b *BocdOnlineChecker) updateGuassianParams(x float64) {
	newInvVariances := make([]float64, len(b.invVariances))
	for i := range b.invVariances {
		newInvVariances[i] = b.invVariances[i] + 1/b.varX
	}
	for i := range b.means {
		b.means[i] = (b.means[i]*b.invVariances[i] + x/b.varX) / newInvVariances[i]
	}
	b.invVariances = append([]float64{1 / b.varX}, newInvVariances...)
	b.means = append([]float64{b.mean0}, b.means...)
}

func (b *BocdOnlineChecker) logOfPreProb(x float64) []float64 {
	variances := b.calVariances()
	logProbs := make([]float64, len(b.means))
	for i := range b.means {
		normalDist := distuv.Normal{
			Mu:    b.means[i],
			Sigma: math.Sqrt(variances[i]),
		}
		logProbs[i] = normalDist.LogProb(x)
	}
	return logProbs
}

// calVariances is the posterior predictive variance per run length.
func (b *BocdOnlineChecker) calVariances() []float64 {
	res := make([]float64, len(b.invVariances))
	for i := range b.invVariances {
		res[i] = 1/b.invVariances[i] + b.varX
	}
	return res
}

func (b *BocdOnlineChecker) prediction() (float64, float64) {
	probs := listExp(b.lastLogRunProbs)
	return floats.Dot(probs, b.means), floats.Dot(probs, b.calVariances())
}

func (b *BocdOnlineChecker) GetPredictionMeans() []float64 {
	return b.pMeans
}

func (b *BocdOnlineChecker) GetPredictionVariances() []float64 {
	return b.pVars
}

func (b *BocdOnlineChecker) Datas() []float64 {
	return b.datas
}

func (b *BocdOnlineChecker) DataSize() int {
	return len(b.datas)
}

func (b *BocdOnlineChecker) GetChangePoints() []*model.ChangePoint {
	return b.changePoints
}

func (b *BocdOnlineChecker) LastChangePoint() (*model.ChangePoint, bool) {
	if len(b.changePoints) > 0 {
		return b.changePoints[len(b.changePoints)-1], true
	}
	return nil, false
}
