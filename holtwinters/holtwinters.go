// Package holtwinters implements Holt-Winters triple exponential smoothing.
package holtwinters

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/sartorproj/salescast/stats"
	"github.com/sartorproj/salescast/timeseries"
)

// Component is the form of the trend or seasonal term.
type Component string

const (
	Additive       Component = "add"
	Multiplicative Component = "mul"
)

var (
	// ErrInsufficientData is returned when the series is shorter than two
	// seasonal periods.
	ErrInsufficientData = errors.New("insufficient data: need at least two seasonal periods")

	// ErrNonPositive is returned when a multiplicative component is requested
	// for a series with zero or negative values.
	ErrNonPositive = errors.New("multiplicative components require strictly positive data")

	// ErrNotFitted is returned when forecasting before Fit succeeded.
	ErrNotFitted = errors.New("model must be fitted before prediction")

	// ErrInvalidConfig is returned for unknown components or a period below 2.
	ErrInvalidConfig = errors.New("invalid holt-winters configuration")
)

// penalty is returned by the objective for parameter sets that diverge.
const penalty = 1e300

// Config selects the trend and seasonal components and the season length.
type Config struct {
	Trend    Component `json:"trend"`
	Seasonal Component `json:"seasonal"`
	Period   int       `json:"period"`
}

// Label renders the configuration as "Trend: add, Seasonal: mul".
func (c Config) Label() string {
	return fmt.Sprintf("Trend: %s, Seasonal: %s", c.Trend, c.Seasonal)
}

func (c Config) validate() error {
	for _, comp := range []Component{c.Trend, c.Seasonal} {
		if comp != Additive && comp != Multiplicative {
			return errors.Wrapf(ErrInvalidConfig, "component %q", comp)
		}
	}
	if c.Period < 2 {
		return errors.Wrapf(ErrInvalidConfig, "period %d", c.Period)
	}
	return nil
}

// multiplicative reports whether any component needs positive data.
func (c Config) multiplicative() bool {
	return c.Trend == Multiplicative || c.Seasonal == Multiplicative
}

// Configs returns the four trend/seasonal combinations in search order:
// add/add, add/mul, mul/add, mul/mul.
func Configs(period int) []Config {
	out := make([]Config, 0, 4)
	for _, trend := range []Component{Additive, Multiplicative} {
		for _, seasonal := range []Component{Additive, Multiplicative} {
			out = append(out, Config{Trend: trend, Seasonal: seasonal, Period: period})
		}
	}
	return out
}

// Params are the smoothing parameters, each in (0, 1).
type Params struct {
	Alpha float64 `json:"alpha"` // level
	Beta  float64 `json:"beta"`  // trend
	Gamma float64 `json:"gamma"` // seasonal
}

// Model represents a Holt-Winters model.
type Model struct {
	Config Config
	Params Params

	Level     float64   // final level
	Slope     float64   // final trend (difference or ratio)
	Seasonals []float64 // last full cycle of seasonal factors

	SSE  float64
	AIC  float64
	AICc float64 // Corrected AIC for small sample sizes
	BIC  float64

	fitted     bool
	data       *timeseries.Series
	residuals  []float64
	fittedVals []float64
}

// New creates an unfitted model.
func New(cfg Config) *Model {
	return &Model{Config: cfg}
}

// Fit estimates the smoothing parameters by minimising the in-sample sum of
// squared one-step errors with Nelder-Mead.
func (m *Model) Fit(series *timeseries.Series) error {
	m.fitted = false

	if err := m.Config.validate(); err != nil {
		return err
	}

	y := series.Values
	period := m.Config.Period
	if len(y) < 2*period {
		return errors.Wrapf(ErrInsufficientData, "%d observations for period %d", len(y), period)
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("observation %d is not finite", i)
		}
	}
	if m.Config.multiplicative() && floats.Min(y) <= 0 {
		return ErrNonPositive
	}

	objective := func(x []float64) float64 {
		state := m.smooth(y, toParams(x))
		if !state.ok {
			return penalty
		}
		return state.sse
	}

	x0 := startPoint(objective)
	result, err := optimize.Minimize(
		optimize.Problem{Func: objective},
		x0,
		&optimize.Settings{
			FuncEvaluations: 4000,
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-10,
				Relative:   1e-10,
				Iterations: 200,
			},
		},
		&optimize.NelderMead{SimplexSize: 0.5},
	)
	if result == nil {
		return errors.Wrap(err, "optimise smoothing parameters")
	}

	// Iteration and evaluation limits still leave a usable best point.
	x := result.X
	if result.F > objective(x0) {
		x = x0
	}

	params := toParams(x)
	state := m.smooth(y, params)
	if !state.ok {
		return errors.Errorf("%s: smoothing diverged", m.Config.Label())
	}

	m.Params = params
	m.Level = state.level
	m.Slope = state.slope
	m.Seasonals = state.seasonals[len(y):]
	m.SSE = state.sse
	m.residuals = state.residuals
	m.fittedVals = state.fitted
	m.data = series
	m.calculateIC()
	m.fitted = true
	return nil
}

// startPoint evaluates a coarse grid and returns the best unconstrained
// starting point.
func startPoint(objective func([]float64) float64) []float64 {
	grid := []float64{0.1, 0.3, 0.5, 0.8}
	best := []float64{logit(0.5), logit(0.1), logit(0.1)}
	bestF := objective(best)
	for _, a := range grid {
		for _, b := range grid {
			for _, g := range grid {
				x := []float64{logit(a), logit(b), logit(g)}
				if f := objective(x); f < bestF {
					best, bestF = x, f
				}
			}
		}
	}
	return best
}

type smoothState struct {
	level     float64
	slope     float64
	seasonals []float64 // len(y)+period; seasonals[t] is the factor applied at t
	fitted    []float64
	residuals []float64
	sse       float64
	ok        bool
}

// initial returns the starting level, slope and first seasonal cycle.
func (m *Model) initial(y []float64) (float64, float64, []float64) {
	period := m.Config.Period
	first := floats.Sum(y[:period]) / float64(period)
	second := floats.Sum(y[period:2*period]) / float64(period)

	level := first
	var slope float64
	if m.Config.Trend == Multiplicative {
		slope = math.Pow(second/first, 1/float64(period))
	} else {
		slope = (second - first) / float64(period)
	}

	season := make([]float64, period)
	for i := range season {
		if m.Config.Seasonal == Multiplicative {
			season[i] = y[i] / level
		} else {
			season[i] = y[i] - level
		}
	}
	return level, slope, season
}

// smooth runs the recursions for fixed parameters.
func (m *Model) smooth(y []float64, p Params) smoothState {
	n := len(y)
	period := m.Config.Period
	mulTrend := m.Config.Trend == Multiplicative
	mulSeason := m.Config.Seasonal == Multiplicative

	level, slope, season := m.initial(y)
	s := make([]float64, n+period)
	copy(s, season)

	fitted := make([]float64, n)
	residuals := make([]float64, n)
	sse := 0.0

	for t := 0; t < n; t++ {
		base := level + slope
		if mulTrend {
			base = level * slope
		}

		var deseasoned float64
		if mulSeason {
			fitted[t] = base * s[t]
			deseasoned = y[t] / s[t]
		} else {
			fitted[t] = base + s[t]
			deseasoned = y[t] - s[t]
		}
		residuals[t] = y[t] - fitted[t]
		sse += residuals[t] * residuals[t]

		prevLevel := level
		level = p.Alpha*deseasoned + (1-p.Alpha)*base
		if mulTrend {
			if level <= 0 || prevLevel <= 0 {
				return smoothState{}
			}
			slope = p.Beta*(level/prevLevel) + (1-p.Beta)*slope
		} else {
			slope = p.Beta*(level-prevLevel) + (1-p.Beta)*slope
		}

		if mulSeason {
			s[t+period] = p.Gamma*(y[t]/base) + (1-p.Gamma)*s[t]
		} else {
			s[t+period] = p.Gamma*(y[t]-base) + (1-p.Gamma)*s[t]
		}

		if math.IsNaN(sse) || math.IsInf(sse, 0) || math.IsNaN(level) || math.IsInf(level, 0) {
			return smoothState{}
		}
	}

	return smoothState{
		level:     level,
		slope:     slope,
		seasonals: s,
		fitted:    fitted,
		residuals: residuals,
		sse:       sse,
		ok:        true,
	}
}

// calculateIC calculates AIC, AICc, and BIC from the sum of squared errors.
func (m *Model) calculateIC() {
	n := float64(len(m.residuals))
	k := float64(m.numParams())

	if m.SSE <= 0 {
		m.AIC, m.AICc, m.BIC = math.Inf(-1), math.Inf(-1), math.Inf(-1)
		return
	}

	ll := n * math.Log(m.SSE/n)
	m.AIC = ll + 2*k
	if n-k-1 > 0 {
		m.AICc = m.AIC + 2*k*(k+1)/(n-k-1)
	} else {
		m.AICc = math.Inf(1)
	}
	m.BIC = ll + k*math.Log(n)
}

// numParams counts the smoothing parameters, initial level and slope and the
// initial seasonal factors.
func (m *Model) numParams() int {
	return 3 + 2 + m.Config.Period
}

// Forecast returns point forecasts for the given number of steps ahead.
func (m *Model) Forecast(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if steps < 1 {
		return nil, errors.New("steps must be at least 1")
	}

	period := m.Config.Period
	out := make([]float64, steps)
	for h := 1; h <= steps; h++ {
		base := m.Level + float64(h)*m.Slope
		if m.Config.Trend == Multiplicative {
			base = m.Level * math.Pow(m.Slope, float64(h))
		}
		season := m.Seasonals[(h-1)%period]
		if m.Config.Seasonal == Multiplicative {
			out[h-1] = base * season
		} else {
			out[h-1] = base + season
		}
	}
	return out, nil
}

// ForecastSeries returns the forecast as a series dated month by month
// after the training data.
func (m *Model) ForecastSeries(steps int) (*timeseries.Series, error) {
	values, err := m.Forecast(steps)
	if err != nil {
		return nil, err
	}
	return &timeseries.Series{
		Timestamps: m.data.NextMonths(steps),
		Values:     values,
		Name:       "forecast",
	}, nil
}

// Residuals returns the one-step-ahead in-sample errors.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	result := make([]float64, len(m.residuals))
	copy(result, m.residuals)
	return result
}

// FittedValues returns the one-step-ahead in-sample predictions.
func (m *Model) FittedValues() []float64 {
	if !m.fitted {
		return nil
	}
	result := make([]float64, len(m.fittedVals))
	copy(result, m.fittedVals)
	return result
}

// Summary describes a fitted model.
type Summary struct {
	Config       Config                    `json:"config"`
	Label        string                    `json:"label"`
	Params       Params                    `json:"params"`
	Level        float64                   `json:"level"`
	Slope        float64                   `json:"slope"`
	Seasonals    []float64                 `json:"seasonals"`
	SSE          float64                   `json:"sse"`
	AIC          float64                   `json:"aic"`
	AICc         float64                   `json:"aicc"`
	BIC          float64                   `json:"bic"`
	NObs         int                       `json:"n_obs"`
	LjungBox     *stats.LjungBoxResult     `json:"ljung_box,omitempty"`
	DurbinWatson *stats.DurbinWatsonResult `json:"durbin_watson,omitempty"`

	// SignificantLags are the residual ACF lags outside the 95% white
	// noise bound.
	SignificantLags []int `json:"significant_lags"`
}

// Summary returns a summary of the fitted model, or nil before Fit.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}

	resid := timeseries.New(m.residuals)
	lb := stats.LjungBox(resid, diagnosticLags, 3)
	significant := stats.SignificantLags(stats.ACF(resid, diagnosticLags), stats.ConfidenceBound(resid.Len()))
	seasonals := make([]float64, len(m.Seasonals))
	copy(seasonals, m.Seasonals)

	return &Summary{
		Config:       m.Config,
		Label:        m.Config.Label(),
		Params:       m.Params,
		Level:        m.Level,
		Slope:        m.Slope,
		Seasonals:    seasonals,
		SSE:          m.SSE,
		AIC:          m.AIC,
		AICc:         m.AICc,
		BIC:          m.BIC,
		NObs:         m.data.Len(),
		LjungBox:     lb,
		DurbinWatson: stats.DurbinWatson(m.residuals),

		SignificantLags: significant,
	}
}

// diagnosticLags is the lag count of the residual diagnostics.
const diagnosticLags = 10

func toParams(x []float64) Params {
	return Params{Alpha: logistic(x[0]), Beta: logistic(x[1]), Gamma: logistic(x[2])}
}

// logistic maps the real line onto (0, 1), clamped away from the bounds.
func logistic(x float64) float64 {
	v := 1 / (1 + math.Exp(-x))
	return math.Min(math.Max(v, 1e-6), 1-1e-6)
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}
