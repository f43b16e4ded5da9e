package files

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"

	"github.com/NordCoder/Tally/internal/domain/measurement"
	"github.com/NordCoder/Tally/internal/ingest"
	"github.com/NordCoder/Tally/internal/obs"
)

// Ingester is the write entry point, satisfied by *ingest.Pipeline.
type Ingester interface {
	Ingest(ctx context.Context, r io.Reader, fileName string) ingest.Outcome
}

type Controller struct {
	log      *zap.Logger
	ingester Ingester
	uc       *Usecase
	maxBytes int64
}

func NewController(log *zap.Logger, ingester Ingester, uc *Usecase, maxUploadBytes int64) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		log:      log.With(zap.String("component", "files.controller")),
		ingester: ingester,
		uc:       uc,
		maxBytes: maxUploadBytes,
	}
}

// Register binds the routes onto a gateway mux.
func (c *Controller) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method, pattern string
		h               runtime.HandlerFunc
	}{
		{http.MethodPost, "/v1/files/upload", c.Upload},
		{http.MethodGet, "/v1/results", c.Results},
		{http.MethodGet, "/v1/files/{fileName}/last-values", c.LastValues},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.pattern, instrumented(r.pattern, r.h)); err != nil {
			return err
		}
	}
	return nil
}

func instrumented(route string, h runtime.HandlerFunc) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		obs.InstrumentHTTP(route, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h(w, r, params)
		})).ServeHTTP(w, r)
	}
}

type errorResp struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type rejectedResp struct {
	Errors     []string           `json:"errors"`
	Violations []ingest.Violation `json:"violations,omitempty"`
}

type uploadResp struct {
	Message  string `json:"message"`
	ResultID string `json:"resultId"`
	FileName string `json:"fileName"`
}

type summaryDTO struct {
	ID                   string    `json:"id"`
	FileName             string    `json:"fileName"`
	ElapsedSeconds       float64   `json:"elapsedSeconds"`
	FirstOperationStart  time.Time `json:"firstOperationStart"`
	AverageExecutionTime float64   `json:"averageExecutionTime"`
	AverageValue         float64   `json:"averageValue"`
	MedianValue          float64   `json:"medianValue"`
	MaxValue             float64   `json:"maxValue"`
	MinValue             float64   `json:"minValue"`
	RowCount             int       `json:"rowCount"`
	CreatedAt            time.Time `json:"createdAt"`
}

type recordDTO struct {
	ID            string    `json:"id"`
	FileName      string    `json:"fileName"`
	Date          time.Time `json:"date"`
	ExecutionTime float64   `json:"executionTime"`
	Value         float64   `json:"value"`
}

func toSummaryDTO(s measurement.Summary) summaryDTO {
	return summaryDTO{
		ID:                   s.ID.String(),
		FileName:             s.FileName,
		ElapsedSeconds:       s.ElapsedSeconds,
		FirstOperationStart:  s.FirstOperationStart,
		AverageExecutionTime: s.AverageExecutionTime,
		AverageValue:         s.AverageValue,
		MedianValue:          s.MedianValue,
		MaxValue:             s.MaxValue,
		MinValue:             s.MinValue,
		RowCount:             s.RowCount,
		CreatedAt:            s.CreatedAt,
	}
}

func toRecordDTO(r measurement.Record) recordDTO {
	return recordDTO{
		ID:            r.ID.String(),
		FileName:      r.FileName,
		Date:          r.Timestamp,
		ExecutionTime: r.ExecutionTime,
		Value:         r.Value,
	}
}

func (c *Controller) Upload(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if c.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, c.maxBytes)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp{Error: "File is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "File is empty"})
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if header.Size == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "File is empty"})
		return
	}
	if strings.ToLower(filepath.Ext(name)) != ".csv" {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "Only CSV files are allowed"})
		return
	}

	out := c.ingester.Ingest(r.Context(), file, name)
	switch {
	case out.OK():
		writeJSON(w, http.StatusOK, uploadResp{
			Message:  "File processed successfully",
			ResultID: out.SummaryID.String(),
			FileName: name,
		})
	case out.Rejected():
		writeJSON(w, http.StatusBadRequest, rejectedResp{Errors: out.Errors, Violations: out.Violations})
	default:
		obs.WithTrace(r.Context(), c.log).Error("upload failed", zap.String("file", name), zap.Error(out.Err))
		writeJSON(w, http.StatusInternalServerError, errorResp{
			Error:   "An error occurred while processing the file",
			Details: strings.Join(out.Errors, "; "),
		})
	}
}

func (c *Controller) Results(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	list, err := c.uc.Results(r.Context(), f)
	if err != nil {
		obs.WithTrace(r.Context(), c.log).Error("list results", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp{
			Error:   "An error occurred while fetching results",
			Details: err.Error(),
		})
		return
	}
	out := make([]summaryDTO, 0, len(list))
	for _, s := range list {
		out = append(out, toSummaryDTO(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *Controller) LastValues(w http.ResponseWriter, r *http.Request, params map[string]string) {
	name := strings.TrimSpace(params["fileName"])
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "File name is required"})
		return
	}
	recs, err := c.uc.LastValues(r.Context(), name)
	switch {
	case errors.Is(err, ErrNoData):
		writeJSON(w, http.StatusNotFound, errorResp{Error: "No data found for file: " + name})
		return
	case err != nil:
		obs.WithTrace(r.Context(), c.log).Error("last values", zap.String("file", name), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp{
			Error:   "An error occurred while fetching values",
			Details: err.Error(),
		})
		return
	}
	out := make([]recordDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecordDTO(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func parseFilter(q url.Values) (measurement.SummaryFilter, error) {
	var (
		f   measurement.SummaryFilter
		err error
	)
	if v := strings.TrimSpace(q.Get("fileName")); v != "" {
		f.FileName = &v
	}
	times := []struct {
		key string
		dst **time.Time
	}{
		{"startDateFrom", &f.StartFrom},
		{"startDateTo", &f.StartTo},
	}
	for _, t := range times {
		if *t.dst, err = optTime(q, t.key); err != nil {
			return f, err
		}
	}
	floats := []struct {
		key string
		dst **float64
	}{
		{"averageValueFrom", &f.AverageValueFrom},
		{"averageValueTo", &f.AverageValueTo},
		{"averageExecutionTimeFrom", &f.AverageExecutionTimeFrom},
		{"averageExecutionTimeTo", &f.AverageExecutionTimeTo},
	}
	for _, fl := range floats {
		if *fl.dst, err = optFloat(q, fl.key); err != nil {
			return f, err
		}
	}
	return f, nil
}

func optTime(q url.Values, key string) (*time.Time, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, errors.New("invalid " + key + ": expected RFC3339 time")
	}
	t = t.UTC()
	return &t, nil
}

func optFloat(q url.Values, key string) (*float64, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errors.New("invalid " + key + ": expected a number")
	}
	return &f, nil
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
