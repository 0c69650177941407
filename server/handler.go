package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sartorproj/salescast/analysis"
	"github.com/sartorproj/salescast/export"
	"github.com/sartorproj/salescast/logging"
	"github.com/sartorproj/salescast/sales"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const maxBody = 1 << 16

// allShops selects the cross-shop aggregate in the workbook route.
const allShops = "all"

// Analyzer runs analyses for the HTTP handlers. *analysis.Session
// satisfies it.
type Analyzer interface {
	Shops(ctx context.Context) (sales.Shops, error)
	Run(ctx context.Context, req analysis.Request) (*analysis.Report, error)
}

type handler struct {
	analyzer Analyzer
	logger   logrus.FieldLogger
}

type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type shopsResponse struct {
	Count int         `json:"count"`
	Shops sales.Shops `json:"shops"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (h *handler) shops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.analyzer.Shops(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if shops == nil {
		shops = sales.Shops{}
	}
	render.JSON(w, r, shopsResponse{Count: len(shops), Shops: shops})
}

func (h *handler) analyze(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		h.fail(w, r, errors.Wrap(analysis.ErrInvalidRequest, "read body"))
		return
	}

	var req analysis.Request
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			h.fail(w, r, errors.Wrap(analysis.ErrInvalidRequest, "malformed JSON body"))
			return
		}
	}

	report, err := h.analyzer.Run(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

func (h *handler) workbook(w http.ResponseWriter, r *http.Request) {
	req, err := workbookRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	report, err := h.analyzer.Run(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(report, &buf); err != nil {
		h.fail(w, r, err)
		return
	}

	name := "salescast-all.xlsx"
	if report.Shop != nil {
		name = fmt.Sprintf("salescast-shop-%d.xlsx", report.Shop.ID)
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context(), h.logger).WithError(err).Warn("workbook write interrupted")
	}
}

func workbookRequest(r *http.Request) (analysis.Request, error) {
	var req analysis.Request

	if raw := chi.URLParam(r, "shopID"); raw != allShops {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.Wrapf(analysis.ErrInvalidRequest, "shop id %q", raw)
		}
		req.ShopID = &id
	}
	if raw := r.URL.Query().Get("horizon"); raw != "" {
		horizon, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.Wrapf(analysis.ErrInvalidRequest, "horizon %q", raw)
		}
		req.Horizon = horizon
	}
	return req, nil
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	log := logging.FromContext(r.Context(), h.logger).WithError(err)
	if status >= http.StatusInternalServerError {
		log.Error("analysis request failed")
	} else {
		log.Debug("analysis request rejected")
	}

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{
		Error:         message,
		CorrelationID: logging.GetCorrelationID(r.Context()),
	})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, analysis.ErrUnknownShop):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
