package analysis

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sartorproj/salescast/changepoint"
	"github.com/sartorproj/salescast/config"
	"github.com/sartorproj/salescast/forecast"
	"github.com/sartorproj/salescast/logging"
	"github.com/sartorproj/salescast/metrics"
	"github.com/sartorproj/salescast/sales"
	"github.com/sartorproj/salescast/selection"
	"github.com/sartorproj/salescast/stats"
	"github.com/sartorproj/salescast/timeseries"
)

var (
	// ErrUnknownShop is returned when the requested shop does not exist or
	// has no records left after preprocessing.
	ErrUnknownShop = errors.New("unknown shop")

	// ErrInvalidRequest is returned for malformed requests.
	ErrInvalidRequest = errors.New("invalid analysis request")
)

var validate = validator.New()

// Settings are the analysis parameters shared by every run.
type Settings struct {
	MinRecords     int
	SeasonalPeriod int
	Horizon        int
	Fractions      timeseries.Fractions
	Changepoint    changepoint.Options
}

// DefaultSettings returns the defaults: 4 records per shop, yearly seasons,
// a 12 month horizon and an 80/10/10 split.
func DefaultSettings() Settings {
	return Settings{
		MinRecords:     sales.DefaultMinRecords,
		SeasonalPeriod: selection.DefaultPeriod,
		Horizon:        12,
		Fractions:      timeseries.DefaultFractions(),
		Changepoint:    changepoint.DefaultOptions(),
	}
}

// SettingsFromConfig extracts the analysis settings of cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		MinRecords:     cfg.Data.MinRecords,
		SeasonalPeriod: cfg.Forecast.SeasonalPeriod,
		Horizon:        cfg.Forecast.Horizon,
		Fractions:      cfg.Forecast.Fractions,
		Changepoint:    cfg.Forecast.Changepoint,
	}
}

// Request selects the shop to analyse. Leave both ShopName and ShopID empty
// to aggregate across all shops. A zero Horizon uses the configured one.
type Request struct {
	ShopName string `json:"shop_name,omitempty" validate:"max=256"`
	ShopID   *int   `json:"shop_id,omitempty" validate:"omitempty,gte=0"`
	Horizon  int    `json:"horizon,omitempty" validate:"gte=0,lte=120"`
}

// Validate checks the request fields.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(ErrInvalidRequest, err.Error())
	}
	if r.ShopName != "" && r.ShopID != nil {
		return errors.Wrap(ErrInvalidRequest, "shop_name and shop_id are mutually exclusive")
	}
	return nil
}

// Session runs analyses against one data source. The changepoint fit is
// cached across runs and refitted when the monthly series changes.
type Session struct {
	source       Source
	settings     Settings
	logger       logrus.FieldLogger
	metrics      *metrics.Collector
	changepoints *forecast.Changepoint
}

// NewSession creates a session. logger and collector may be nil.
func NewSession(source Source, settings Settings, logger logrus.FieldLogger, collector *metrics.Collector) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Session{
		source:       source,
		settings:     settings,
		logger:       logger.WithField(logging.FieldComponent, "analysis"),
		metrics:      collector,
		changepoints: forecast.NewChangepoint(settings.Changepoint, collector),
	}
}

// Settings returns the session settings.
func (s *Session) Settings() Settings {
	return s.settings
}

// Invalidate drops the cached changepoint fit.
func (s *Session) Invalidate() {
	s.changepoints.Invalidate()
}

// Shops lists the shops that still have records after preprocessing.
func (s *Session) Shops(ctx context.Context) (sales.Shops, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return data.shops, nil
}

type loaded struct {
	pre   *sales.PreprocessResult
	shops sales.Shops // present after preprocessing
	nulls map[string]int
}

func (s *Session) load(ctx context.Context) (*loaded, error) {
	records, err := s.source.Records(ctx)
	if err != nil {
		return nil, err
	}
	shops, err := s.source.Shops(ctx)
	if err != nil {
		return nil, err
	}
	nulls := records.NullCounts()

	pre, err := sales.Preprocess(records, sales.PreprocessOptions{MinRecords: s.settings.MinRecords})
	if err != nil {
		return nil, err
	}
	return &loaded{pre: pre, shops: shops.Present(pre.Table), nulls: nulls}, nil
}

// Run loads the data, aggregates the requested shop to monthly totals and
// produces the decompositions, both forecasts and the model selection
// summary. A run where no smoothing configuration fits still returns a
// report, with Selection.Viable false and no predictions.
func (s *Session) Run(ctx context.Context, req Request) (report *Report, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	log := logging.FromContext(ctx, s.logger).WithField(logging.FieldRunID, runID)
	outcome := metrics.OutcomeFailure
	defer func() {
		s.metrics.RunFinished(outcome)
		if err != nil {
			log.WithError(err).Error("analysis failed")
		}
	}()

	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	pre := data.pre
	log.WithFields(logrus.Fields{
		"records":         len(pre.Table),
		"dropped_records": pre.DroppedRecords,
		"dropped_shops":   pre.DroppedShops,
		"offset":          float64(pre.Offset),
	}).Debug("preprocessed sales records")

	shop, err := resolveShop(data.shops, req)
	if err != nil {
		return nil, err
	}

	var shopID *int
	if shop != nil {
		shopID = &shop.ID
		log = log.WithField("shop_id", shop.ID)
	}
	monthly, title := sales.MonthlyTotals(pre.Table, shopID)
	if !monthly.IsSorted() {
		log.Debug("sorting monthly totals by date")
		if monthly, err = monthly.SortByTime(); err != nil {
			return nil, err
		}
	}

	report = &Report{
		RunID:          runID,
		GeneratedAt:    time.Now().UTC(),
		Shop:           shop,
		Title:          title,
		Offset:         float64(pre.Offset),
		NullCounts:     data.nulls,
		DroppedRecords: pre.DroppedRecords,
		DroppedShops:   pre.DroppedShops,
		Monthly:        newSeries(monthly.Name, monthly),
		Decompositions: []Decomposition{},
	}

	for _, model := range []stats.Model{stats.Additive, stats.Multiplicative} {
		d, err := stats.Decompose(monthly, s.settings.SeasonalPeriod, model)
		if err != nil {
			log.WithError(err).WithField("model", model).Info("decomposition skipped")
			continue
		}
		report.Decompositions = append(report.Decompositions, newDecomposition(d))
	}

	if err := s.changepointForecasts(ctx, log, monthly, req.Horizon, report); err != nil {
		return nil, err
	}

	if outcome, err = s.smoothingForecasts(ctx, log, monthly, report); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"months":   monthly.Len(),
		"selected": report.Selection.Label,
	}).Info("analysis finished")
	return report, nil
}

// smoothingForecasts splits the series, selects the smoothing model and
// fills the predictions. It returns the run outcome. A series with
// duplicated months cannot be split chronologically and leaves the
// selection non-viable.
func (s *Session) smoothingForecasts(ctx context.Context, log logrus.FieldLogger, monthly *timeseries.Series, report *Report) (string, error) {
	report.Selection = newSelection(nil)
	if !monthly.IsSorted() {
		err := errors.Wrap(timeseries.ErrIrregularFrequency, "duplicate calendar months")
		report.Selection.Reason = err.Error()
		log.WithError(err).Warn("no viable smoothing model")
		return metrics.OutcomeNoModel, nil
	}

	split, err := timeseries.SplitFractions(monthly, s.settings.Fractions)
	if err != nil {
		return metrics.OutcomeFailure, err
	}
	report.Split = SplitReport{
		Train: newSeries("train", split.Train),
		Valid: newSeries("valid", split.Valid),
		Test:  newSeries("test", split.Test),
	}

	result, err := selection.Select(ctx, split.Train, split.Valid, selection.Options{
		Period:   s.settings.SeasonalPeriod,
		Logger:   log,
		Observer: s.metrics,
	})
	report.Selection = newSelection(result)
	switch {
	case err == nil:
	case errors.Is(err, selection.ErrNoViableModel), errors.Is(err, timeseries.ErrIrregularFrequency):
		report.Selection.Reason = err.Error()
		log.WithError(err).Warn("no viable smoothing model")
		return metrics.OutcomeNoModel, nil
	default:
		return metrics.OutcomeFailure, err
	}

	periods := split.Valid.Len() + split.Test.Len()
	predictions, err := forecast.Smoothing(result.Best.Model, periods)
	if err != nil {
		return metrics.OutcomeFailure, errors.Wrap(err, "smoothing forecast")
	}
	report.Predictions = newForecast(predictions)
	report.Selection.TestAccuracy = newAccuracy(split.Test.Values, predictions.Values[split.Valid.Len():])
	return metrics.OutcomeSuccess, nil
}

// changepointForecasts fills the in-sample and extended forecasts. A series
// too short for the changepoint model leaves both empty.
func (s *Session) changepointForecasts(ctx context.Context, log logrus.FieldLogger, monthly *timeseries.Series, horizon int, report *Report) error {
	if horizon <= 0 {
		horizon = s.settings.Horizon
	}

	inSample, err := s.changepoints.InSample(ctx, monthly)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("changepoint forecast skipped")
		return nil
	}
	extended, err := s.changepoints.OutOfSample(ctx, monthly, horizon)
	if err != nil {
		return err
	}

	report.InSample = newForecast(inSample)
	report.Extended = newForecast(extended)
	return nil
}

func resolveShop(shops sales.Shops, req Request) (*sales.Shop, error) {
	switch {
	case req.ShopName != "":
		shop, ok := shops.ByName(req.ShopName)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownShop, "name %q", req.ShopName)
		}
		return &shop, nil
	case req.ShopID != nil:
		shop, ok := shops.ByID(*req.ShopID)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownShop, "id %d", *req.ShopID)
		}
		return &shop, nil
	}
	return nil, nil
}
