package forecast

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/sartorproj/salescast/changepoint"
	"github.com/sartorproj/salescast/timeseries"
)

// CacheObserver is notified of every fit cache lookup.
type CacheObserver interface {
	CacheLookup(hit bool)
}

// Changepoint produces in-sample and out-of-sample forecasts from a single
// changepoint fit. The fit is cached by series fingerprint, so asking for
// both views of the same series fits once. It is safe for concurrent use.
type Changepoint struct {
	options  changepoint.Options
	observer CacheObserver

	mu          sync.Mutex
	fingerprint uint64
	model       *changepoint.Model
}

// NewChangepoint creates a generator. observer may be nil.
func NewChangepoint(opts changepoint.Options, observer CacheObserver) *Changepoint {
	return &Changepoint{options: opts, observer: observer}
}

// InSample predicts over the dates of series.
func (c *Changepoint) InSample(ctx context.Context, series *timeseries.Series) (*Output, error) {
	model, err := c.fit(ctx, series)
	if err != nil {
		return nil, err
	}
	return predict(model, series.Timestamps)
}

// OutOfSample predicts over the history of series followed by horizon
// month starts.
func (c *Changepoint) OutOfSample(ctx context.Context, series *timeseries.Series, horizon int) (*Output, error) {
	if horizon < 1 {
		return nil, errors.Errorf("horizon must be at least 1, got %d", horizon)
	}
	model, err := c.fit(ctx, series)
	if err != nil {
		return nil, err
	}
	return predict(model, model.MakeFutureDates(horizon, true))
}

// Model returns the cached fit, or nil.
func (c *Changepoint) Model() *changepoint.Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// Invalidate drops the cached fit.
func (c *Changepoint) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = nil
	c.fingerprint = 0
}

func (c *Changepoint) fit(ctx context.Context, series *timeseries.Series) (*changepoint.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fp := Fingerprint(series)

	c.mu.Lock()
	defer c.mu.Unlock()

	hit := c.model != nil && c.fingerprint == fp
	if c.observer != nil {
		c.observer.CacheLookup(hit)
	}
	if hit {
		return c.model, nil
	}

	c.model = nil
	model := changepoint.New(c.options)
	if err := model.Fit(series); err != nil {
		return nil, errors.Wrap(err, "fit changepoint model")
	}
	c.model, c.fingerprint = model, fp
	return model, nil
}

func predict(model *changepoint.Model, dates []time.Time) (*Output, error) {
	p, err := model.Predict(dates)
	if err != nil {
		return nil, err
	}
	return &Output{
		Method: MethodChangepoint,
		Dates:  p.Dates,
		Values: p.Yhat,
		Lower:  p.Lower,
		Upper:  p.Upper,
	}, nil
}

// Fingerprint hashes the timestamps and values of a series.
func Fingerprint(series *timeseries.Series) uint64 {
	h := xxhash.New()
	var buf [8]byte
	write := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}

	write(uint64(series.Len()))
	for _, ts := range series.Timestamps {
		write(uint64(ts.UnixNano()))
	}
	for _, v := range series.Values {
		write(math.Float64bits(v))
	}
	return h.Sum64()
}
