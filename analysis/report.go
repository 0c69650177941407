package analysis

import (
	"math"
	"strconv"
	"time"

	"github.com/sartorproj/salescast/forecast"
	"github.com/sartorproj/salescast/holtwinters"
	"github.com/sartorproj/salescast/sales"
	"github.com/sartorproj/salescast/selection"
	"github.com/sartorproj/salescast/stats"
	"github.com/sartorproj/salescast/timeseries"
)

// Number is a float64 that encodes NaN and infinities as JSON null.
type Number float64

// IsNaN reports whether n is NaN.
func (n Number) IsNaN() bool {
	return math.IsNaN(float64(n))
}

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Number(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Report is the result of one analysis run.
type Report struct {
	RunID       string      `json:"run_id"`
	GeneratedAt time.Time   `json:"generated_at"`
	Shop        *sales.Shop `json:"shop,omitempty"`
	Title       string      `json:"title"`

	// Offset was added to every item count before aggregation.
	Offset         float64        `json:"offset"`
	NullCounts     map[string]int `json:"null_counts"`
	DroppedRecords int            `json:"dropped_records"`
	DroppedShops   int            `json:"dropped_shops"`

	Monthly        Series          `json:"monthly"`
	Decompositions []Decomposition `json:"decompositions"`
	InSample       *Forecast       `json:"in_sample,omitempty"`
	Extended       *Forecast       `json:"extended,omitempty"`
	Split          SplitReport     `json:"split"`
	Predictions    *Forecast       `json:"predictions,omitempty"`
	Selection      Selection       `json:"selection"`
}

// Point is a dated value.
type Point struct {
	Date  time.Time `json:"date"`
	Value Number    `json:"value"`
}

// Series is a named list of points.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Values returns the point values.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = float64(p.Value)
	}
	return out
}

// TimeSeries converts s back to a dated series.
func (s Series) TimeSeries() *timeseries.Series {
	out := &timeseries.Series{
		Name:       s.Name,
		Timestamps: make([]time.Time, len(s.Points)),
		Values:     s.Values(),
	}
	for i, p := range s.Points {
		out.Timestamps[i] = p.Date
	}
	return out
}

func newSeries(name string, s *timeseries.Series) Series {
	out := Series{Name: name, Points: make([]Point, s.Len())}
	for i, v := range s.Values {
		out.Points[i].Value = Number(v)
		if s.HasTimestamps() {
			out.Points[i].Date = s.Timestamps[i]
		}
	}
	return out
}

// BandPoint is a forecast value with optional bounds.
type BandPoint struct {
	Date  time.Time `json:"date"`
	Value Number    `json:"value"`
	Lower Number    `json:"lower"`
	Upper Number    `json:"upper"`
}

// Forecast is a dated forecast. Lower and Upper are null without bounds.
type Forecast struct {
	Method    string      `json:"method"`
	HasBounds bool        `json:"has_bounds"`
	Points    []BandPoint `json:"points"`
}

func newForecast(o *forecast.Output) *Forecast {
	out := &Forecast{Method: o.Method, HasBounds: o.HasBounds(), Points: make([]BandPoint, o.Len())}
	for i, p := range o.Points() {
		bp := BandPoint{Date: p.Date, Value: Number(p.Value), Lower: Number(math.NaN()), Upper: Number(math.NaN())}
		if out.HasBounds {
			bp.Lower, bp.Upper = Number(p.Lower), Number(p.Upper)
		}
		out.Points[i] = bp
	}
	return out
}

// Decomposition is one seasonal decomposition panel.
type Decomposition struct {
	Model    string `json:"model"`
	Period   int    `json:"period"`
	Trend    Series `json:"trend"`
	Seasonal Series `json:"seasonal"`
	Residual Series `json:"residual"`
}

func newDecomposition(d *stats.DecompositionResult) Decomposition {
	return Decomposition{
		Model:    string(d.Model),
		Period:   d.Period,
		Trend:    newSeries("trend", d.Trend),
		Seasonal: newSeries("seasonal", d.Seasonal),
		Residual: newSeries("residual", d.Residual),
	}
}

// SplitReport holds the three chronological segments.
type SplitReport struct {
	Train Series `json:"train"`
	Valid Series `json:"valid"`
	Test  Series `json:"test"`
}

// Attempt is the outcome of one smoothing configuration.
type Attempt struct {
	Label string `json:"label"`
	MSE   Number `json:"mse"`
	Error string `json:"error,omitempty"`
}

// Selection summarises model selection. Label, MSE and Diagnostics are set
// only when Viable.
type Selection struct {
	Viable      bool         `json:"viable"`
	Label       string       `json:"label,omitempty"`
	MSE         Number       `json:"mse"`
	Reason      string       `json:"reason,omitempty"`
	Attempts    []Attempt    `json:"attempts"`
	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`

	// TestAccuracy scores the predictions against the held-out test months.
	TestAccuracy *Accuracy `json:"test_accuracy,omitempty"`
}

// Accuracy holds forecast errors over a held-out segment.
type Accuracy struct {
	Points int    `json:"points"`
	RMSE   Number `json:"rmse"`
	MAE    Number `json:"mae"`
	MAPE   Number `json:"mape"`
}

// newAccuracy returns nil when there is nothing to compare.
func newAccuracy(actual, predicted []float64) *Accuracy {
	rmse, err := stats.RMSE(actual, predicted)
	if err != nil {
		return nil
	}
	mae, _ := stats.MAE(actual, predicted)
	mape, _ := stats.MAPE(actual, predicted)
	return &Accuracy{
		Points: len(actual),
		RMSE:   Number(rmse),
		MAE:    Number(mae),
		MAPE:   Number(mape),
	}
}

func newSelection(result *selection.Result) Selection {
	out := Selection{MSE: Number(math.NaN())}
	if result == nil {
		return out
	}
	for _, a := range result.Attempts {
		attempt := Attempt{Label: a.Label, MSE: Number(a.MSE)}
		if a.Err != nil {
			attempt.Error = a.Err.Error()
		}
		out.Attempts = append(out.Attempts, attempt)
	}
	if result.Viable() {
		out.Viable = true
		out.Label = result.Best.Label
		out.MSE = Number(result.Best.MSE)
		out.Diagnostics = newDiagnostics(result.Best.Model.Summary())
	}
	return out
}

// Diagnostics describe the selected smoothing model.
type Diagnostics struct {
	Alpha        Number    `json:"alpha"`
	Beta         Number    `json:"beta"`
	Gamma        Number    `json:"gamma"`
	SSE          Number    `json:"sse"`
	AIC          Number    `json:"aic"`
	AICc         Number    `json:"aicc"`
	BIC          Number    `json:"bic"`
	LjungBox     *LjungBox `json:"ljung_box,omitempty"`
	DurbinWatson Number    `json:"durbin_watson"`

	// SignificantLags lists residual autocorrelation lags outside the 95%
	// white noise bound.
	SignificantLags []int `json:"significant_lags"`
}

// LjungBox is the residual autocorrelation test of the selected model.
type LjungBox struct {
	Statistic  Number `json:"statistic"`
	PValue     Number `json:"p_value"`
	Lags       int    `json:"lags"`
	WhiteNoise bool   `json:"white_noise"`
}

func newDiagnostics(s *holtwinters.Summary) *Diagnostics {
	if s == nil {
		return nil
	}
	d := &Diagnostics{
		Alpha:        Number(s.Params.Alpha),
		Beta:         Number(s.Params.Beta),
		Gamma:        Number(s.Params.Gamma),
		SSE:          Number(s.SSE),
		AIC:          Number(s.AIC),
		AICc:         Number(s.AICc),
		BIC:          Number(s.BIC),
		DurbinWatson: Number(math.NaN()),

		SignificantLags: s.SignificantLags,
	}
	if s.LjungBox != nil {
		d.LjungBox = &LjungBox{
			Statistic:  Number(s.LjungBox.Statistic),
			PValue:     Number(s.LjungBox.PValue),
			Lags:       s.LjungBox.Lags,
			WhiteNoise: s.LjungBox.WhiteNoise(),
		}
	}
	if s.DurbinWatson != nil {
		d.DurbinWatson = Number(s.DurbinWatson.Statistic)
	}
	return d
}
