// Package changepoint implements an additive regression model with a
// piecewise-linear trend and Fourier yearly seasonality.
package changepoint

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/salescast/timeseries"
)

var (
	// ErrInsufficientData is returned when fewer than two usable observations
	// remain after dropping missing values.
	ErrInsufficientData = errors.New("insufficient data: need at least two observations")

	// ErrNotFitted is returned when predicting before Fit succeeded.
	ErrNotFitted = errors.New("model must be fitted before prediction")

	// ErrSingular is returned when the regularised normal equations cannot
	// be factorised.
	ErrSingular = errors.New("design matrix is not positive definite")
)

const (
	daysPerYear = 365.25
	day         = 24 * time.Hour

	// yearlyThreshold is the history span that switches yearly seasonality
	// on in Auto mode.
	yearlyThreshold = 730

	// noiseVariance is the prior observation noise on the scaled target.
	noiseVariance = 0.01

	// trendPriorScale loosely regularises intercept and base slope.
	trendPriorScale = 1e4
)

// Seasonality controls the yearly Fourier terms.
type Seasonality string

const (
	SeasonalityAuto Seasonality = "auto"
	SeasonalityOn   Seasonality = "on"
	SeasonalityOff  Seasonality = "off"
)

// Options configures the model.
type Options struct {
	NChangepoints         int         `mapstructure:"changepoints" validate:"gte=0"`
	ChangepointRange      float64     `mapstructure:"changepoint_range" validate:"gt=0,lte=1"`
	ChangepointPriorScale float64     `mapstructure:"changepoint_prior_scale" validate:"gt=0"`
	SeasonalityPriorScale float64     `mapstructure:"seasonality_prior_scale" validate:"gt=0"`
	YearlyOrder           int         `mapstructure:"yearly_order" validate:"gte=1"`
	Yearly                Seasonality `mapstructure:"yearly" validate:"omitempty,oneof=auto on off"`
	IntervalWidth         float64     `mapstructure:"interval_width" validate:"gt=0,lt=1"`
}

// DefaultOptions returns 25 changepoints over the first 80% of history,
// yearly seasonality of order 10 when the history spans two years, and 80%
// uncertainty intervals.
func DefaultOptions() Options {
	return Options{
		NChangepoints:         25,
		ChangepointRange:      0.8,
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10,
		YearlyOrder:           10,
		Yearly:                SeasonalityAuto,
		IntervalWidth:         0.8,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.NChangepoints < 0 {
		o.NChangepoints = d.NChangepoints
	}
	if o.ChangepointRange <= 0 || o.ChangepointRange > 1 {
		o.ChangepointRange = d.ChangepointRange
	}
	if o.ChangepointPriorScale <= 0 {
		o.ChangepointPriorScale = d.ChangepointPriorScale
	}
	if o.SeasonalityPriorScale <= 0 {
		o.SeasonalityPriorScale = d.SeasonalityPriorScale
	}
	if o.YearlyOrder <= 0 {
		o.YearlyOrder = d.YearlyOrder
	}
	if o.Yearly == "" {
		o.Yearly = d.Yearly
	}
	if o.IntervalWidth <= 0 || o.IntervalWidth >= 1 {
		o.IntervalWidth = d.IntervalWidth
	}
	return o
}

// Model is a changepoint regression model.
type Model struct {
	Options Options

	// ChangepointDates are the potential trend changes placed over history.
	ChangepointDates []time.Time
	// Yearly reports whether yearly seasonality was fitted.
	Yearly bool
	// Sigma is the residual standard deviation on the original scale.
	Sigma float64

	start        time.Time
	span         float64 // history length in days
	yScale       float64
	changepoints []float64 // scaled time
	beta         []float64
	history      []time.Time
	historyEnd   time.Time
	fitted       bool
}

// New creates an unfitted model. Unset scales, order, range and interval
// width take their defaults; NChangepoints of zero fits a single linear trend.
func New(opts Options) *Model {
	return &Model{Options: opts.withDefaults()}
}

// Fit estimates trend, changepoint and seasonality coefficients by
// regularised least squares. NaN observations are skipped.
func (m *Model) Fit(series *timeseries.Series) error {
	m.fitted = false

	if !series.HasTimestamps() {
		return errors.New("changepoint model requires timestamps")
	}
	if !series.IsSorted() {
		return timeseries.ErrUnsorted
	}

	var dates []time.Time
	var y []float64
	for i, v := range series.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		dates = append(dates, series.Timestamps[i])
		y = append(y, v)
	}
	n := len(y)
	if n < 2 {
		return errors.Wrapf(ErrInsufficientData, "%d usable observations", n)
	}

	m.start = dates[0]
	m.history = dates
	m.historyEnd = dates[n-1]
	m.span = dates[n-1].Sub(dates[0]).Hours() / 24

	m.yScale = math.Max(math.Abs(floats.Max(y)), math.Abs(floats.Min(y)))
	if m.yScale == 0 {
		m.yScale = 1
	}

	switch m.Options.Yearly {
	case SeasonalityOn:
		m.Yearly = true
	case SeasonalityOff:
		m.Yearly = false
	default:
		m.Yearly = m.span >= yearlyThreshold
	}

	m.placeChangepoints(dates)

	x := m.design(dates)
	p := x.RawMatrix().Cols

	scaled := make([]float64, n)
	floats.ScaleTo(scaled, 1/m.yScale, y)
	yv := mat.NewVecDense(n, scaled)

	a := mat.NewSymDense(p, nil)
	a.SymOuterK(1, x.T())
	for j, lambda := range m.penalties(p) {
		a.SetSym(j, j, a.At(j, j)+lambda)
	}

	var rhs mat.VecDense
	rhs.MulVec(x.T(), yv)

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return ErrSingular
	}
	beta := mat.NewVecDense(p, nil)
	if err := chol.SolveVecTo(beta, &rhs); err != nil {
		return errors.Wrap(err, "solve normal equations")
	}

	m.beta = make([]float64, p)
	for j := range m.beta {
		m.beta[j] = beta.AtVec(j)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, beta)
	residuals := make([]float64, n)
	for i := range residuals {
		residuals[i] = y[i] - fitted.AtVec(i)*m.yScale
	}
	m.Sigma = stat.StdDev(residuals, nil)
	if math.IsNaN(m.Sigma) {
		m.Sigma = 0
	}

	m.fitted = true
	return nil
}

// placeChangepoints spreads the changepoints uniformly over the first
// ChangepointRange share of the observations.
func (m *Model) placeChangepoints(dates []time.Time) {
	k := m.Options.NChangepoints
	histSize := int(math.Floor(float64(len(dates)) * m.Options.ChangepointRange))
	if k+1 > histSize {
		k = histSize - 1
	}

	m.changepoints = nil
	m.ChangepointDates = nil
	if k <= 0 {
		return
	}

	for i := 1; i <= k; i++ {
		idx := int(math.Round(float64(i) * float64(histSize-1) / float64(k)))
		m.ChangepointDates = append(m.ChangepointDates, dates[idx])
		m.changepoints = append(m.changepoints, m.scaleTime(dates[idx]))
	}
}

func (m *Model) scaleTime(t time.Time) float64 {
	if m.span == 0 {
		return 0
	}
	return t.Sub(m.start).Hours() / 24 / m.span
}

// design builds rows [1, t, (t-c_1)+ ... (t-c_k)+, sin/cos yearly terms].
func (m *Model) design(dates []time.Time) *mat.Dense {
	k := len(m.changepoints)
	fourier := 0
	if m.Yearly {
		fourier = 2 * m.Options.YearlyOrder
	}
	cols := 2 + k + fourier

	x := mat.NewDense(len(dates), cols, nil)
	for i, d := range dates {
		t := m.scaleTime(d)
		x.Set(i, 0, 1)
		x.Set(i, 1, t)
		for j, c := range m.changepoints {
			x.Set(i, 2+j, math.Max(t-c, 0))
		}
		if m.Yearly {
			days := float64(d.Unix()) / day.Seconds()
			for order := 1; order <= m.Options.YearlyOrder; order++ {
				arg := 2 * math.Pi * float64(order) * days / daysPerYear
				col := 2 + k + 2*(order-1)
				x.Set(i, col, math.Sin(arg))
				x.Set(i, col+1, math.Cos(arg))
			}
		}
	}
	return x
}

// penalties returns the ridge penalty per column: the noise variance over
// the squared prior scale of each coefficient group.
func (m *Model) penalties(cols int) []float64 {
	k := len(m.changepoints)
	out := make([]float64, cols)
	for j := range out {
		scale := m.Options.SeasonalityPriorScale
		switch {
		case j < 2:
			scale = trendPriorScale
		case j < 2+k:
			scale = m.Options.ChangepointPriorScale
		}
		out[j] = noiseVariance / (scale * scale)
	}
	return out
}

// Prediction holds point forecasts and uncertainty bounds per date.
type Prediction struct {
	Dates []time.Time
	Yhat  []float64
	Lower []float64
	Upper []float64
	Trend []float64
}

// Len returns the number of predicted dates.
func (p *Prediction) Len() int {
	return len(p.Dates)
}

// Predict evaluates the model at the given dates. Dates within the fitted
// history get a constant interval of z*sigma; the k-th month beyond the
// history widens it to z*sigma*sqrt(k).
func (m *Model) Predict(dates []time.Time) (*Prediction, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if len(dates) == 0 {
		return &Prediction{}, nil
	}

	x := m.design(dates)
	beta := mat.NewVecDense(len(m.beta), m.beta)

	var yhat mat.VecDense
	yhat.MulVec(x, beta)

	trendCols := 2 + len(m.changepoints)
	trendBeta := mat.NewVecDense(trendCols, m.beta[:trendCols])
	var trend mat.VecDense
	trend.MulVec(x.Slice(0, len(dates), 0, trendCols), trendBeta)

	z := distuv.UnitNormal.Quantile(0.5 + m.Options.IntervalWidth/2)

	out := &Prediction{
		Dates: append([]time.Time(nil), dates...),
		Yhat:  make([]float64, len(dates)),
		Lower: make([]float64, len(dates)),
		Upper: make([]float64, len(dates)),
		Trend: make([]float64, len(dates)),
	}
	for i, d := range dates {
		v := yhat.AtVec(i) * m.yScale
		half := z * m.Sigma
		if ahead := monthsAfter(m.historyEnd, d); ahead > 0 {
			half *= math.Sqrt(float64(ahead))
		}
		out.Yhat[i] = v
		out.Lower[i] = v - half
		out.Upper[i] = v + half
		out.Trend[i] = trend.AtVec(i) * m.yScale
	}
	return out, nil
}

// MakeFutureDates returns periods month starts after the end of history,
// preceded by the history dates when includeHistory is set.
func (m *Model) MakeFutureDates(periods int, includeHistory bool) []time.Time {
	var out []time.Time
	if includeHistory {
		out = append(out, m.history...)
	}
	return append(out, timeseries.MonthRange(timeseries.AddMonths(m.historyEnd, 1), periods)...)
}

// monthsAfter returns how many calendar months d lies after end, or zero
// when d is not after end.
func monthsAfter(end, d time.Time) int {
	if !d.After(end) {
		return 0
	}
	months := (d.Year()-end.Year())*12 + int(d.Month()) - int(end.Month())
	if months < 1 {
		months = 1
	}
	return months
}
