package selection

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/salescast/holtwinters"
	"github.com/sartorproj/salescast/stats"
	"github.com/sartorproj/salescast/timeseries"
)

// ErrNoViableModel is returned when every configuration failed to fit or
// produced a non-finite validation score.
var ErrNoViableModel = errors.New("no viable holt-winters configuration")

// DefaultPeriod is the monthly seasonal period.
const DefaultPeriod = 12

// FitObserver is notified after every configuration fit.
type FitObserver interface {
	FitFinished(config string, elapsed time.Duration, err error)
}

// Options controls the search.
type Options struct {
	Period   int                  // seasonal period (default: 12)
	Configs  []holtwinters.Config // search order (default: holtwinters.Configs(Period))
	Logger   logrus.FieldLogger
	Observer FitObserver
}

func (o Options) withDefaults() Options {
	if o.Period <= 0 {
		o.Period = DefaultPeriod
	}
	if len(o.Configs) == 0 {
		o.Configs = holtwinters.Configs(o.Period)
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// Candidate is a fitted configuration scored on the validation series.
type Candidate struct {
	Config   holtwinters.Config
	Label    string
	Model    *holtwinters.Model
	Forecast []float64 // validation-horizon forecast the score was taken on
	MSE      float64
}

// Attempt records the outcome of one configuration.
type Attempt struct {
	Config  holtwinters.Config
	Label   string
	MSE     float64 // NaN when Err is set
	Err     error
	Elapsed time.Duration
}

// OK reports whether the configuration produced a usable score.
func (a Attempt) OK() bool {
	return a.Err == nil
}

// Result holds the best candidate and every attempt in search order.
type Result struct {
	Best     *Candidate
	Attempts []Attempt
}

// Viable reports whether any configuration succeeded.
func (r *Result) Viable() bool {
	return r != nil && r.Best != nil
}

// Select fits every configuration on train, forecasts len(valid) steps and
// keeps the one with the lowest validation MSE. Fits run concurrently; the
// comparison runs in configuration order with a strict less-than, so on a
// tie the earlier configuration wins.
//
// Both series are re-indexed to month-start frequency first. When no
// configuration succeeds the returned error is ErrNoViableModel and the
// Result still carries every failed attempt.
func Select(ctx context.Context, train, valid *timeseries.Series, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	monthlyTrain, err := timeseries.AsMonthly(train)
	if err != nil {
		return nil, errors.Wrap(err, "train series")
	}
	monthlyValid, err := timeseries.AsMonthly(valid)
	if err != nil {
		return nil, errors.Wrap(err, "validation series")
	}

	attempts := make([]Attempt, len(opts.Configs))
	candidates := make([]*Candidate, len(opts.Configs))

	g, gctx := errgroup.WithContext(ctx)
	for i, cfg := range opts.Configs {
		i, cfg := i, cfg
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			attempts[i], candidates[i] = evaluate(cfg, monthlyTrain, monthlyValid)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Attempts: attempts}
	for i, attempt := range attempts {
		if opts.Observer != nil {
			opts.Observer.FitFinished(attempt.Label, attempt.Elapsed, attempt.Err)
		}
		if !attempt.OK() {
			opts.Logger.WithError(attempt.Err).
				WithField("config", attempt.Label).
				Warn("skipping holt-winters configuration")
			continue
		}
		opts.Logger.WithFields(logrus.Fields{
			"config": attempt.Label,
			"mse":    attempt.MSE,
		}).Debug("holt-winters configuration scored")

		if result.Best == nil || attempt.MSE < result.Best.MSE {
			result.Best = candidates[i]
		}
	}

	if !result.Viable() {
		return result, ErrNoViableModel
	}
	opts.Logger.WithFields(logrus.Fields{
		"config": result.Best.Label,
		"mse":    result.Best.MSE,
	}).Info("selected holt-winters configuration")
	return result, nil
}

func evaluate(cfg holtwinters.Config, train, valid *timeseries.Series) (Attempt, *Candidate) {
	start := time.Now()
	attempt := Attempt{Config: cfg, Label: cfg.Label(), MSE: math.NaN()}

	model := holtwinters.New(cfg)
	candidate, err := score(model, train, valid)
	attempt.Elapsed = time.Since(start)
	if err != nil {
		attempt.Err = err
		return attempt, nil
	}
	attempt.MSE = candidate.MSE
	return attempt, candidate
}

func score(model *holtwinters.Model, train, valid *timeseries.Series) (*Candidate, error) {
	if err := model.Fit(train); err != nil {
		return nil, err
	}
	forecast, err := model.Forecast(valid.Len())
	if err != nil {
		return nil, err
	}
	mse, err := stats.MSE(valid.Values, forecast)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(mse) || math.IsInf(mse, 0) {
		return nil, errors.Errorf("validation mse is %v", mse)
	}
	return &Candidate{
		Config:   model.Config,
		Label:    model.Config.Label(),
		Model:    model,
		Forecast: forecast,
		MSE:      mse,
	}, nil
}
