//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type cfg struct {
	APIBase     string // http://localhost:8080
	WaitHealthy time.Duration
}

func loadCfg() cfg {
	return cfg{
		APIBase:     getenv("E2E_API_BASE", "http://localhost:8080"),
		WaitHealthy: mustParseDur(getenv("E2E_WAIT_HEALTHY", "60s")),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustParseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}

type uploadResp struct {
	Message  string `json:"message"`
	ResultID string `json:"resultId"`
	FileName string `json:"fileName"`
}

type summary struct {
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
}

// --- helpers

func upload(t *testing.T, base, name, body string) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = io.WriteString(fw, body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, base+"/v1/files/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func getJSON(t *testing.T, url string, into any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	all, _ := io.ReadAll(resp.Body)
	require.Equal(t, 200, resp.StatusCode, string(all))
	require.NoError(t, json.Unmarshal(all, into))
}

func waitHealthy(t *testing.T, c cfg) {
	t.Helper()
	deadline := time.Now().Add(c.WaitHealthy)
	for time.Now().Before(deadline) {
		resp, err := http.Get(c.APIBase + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == 200 {
				return
			}
		}
		time.Sleep(time.Second)
	}
	t.Fatalf("ingest-api not healthy at %s", c.APIBase)
}

func Test_Upload_ThenQuery(t *testing.T) {
	c := loadCfg()
	waitHealthy(t, c)

	name := fmt.Sprintf("e2e_%d.csv", time.Now().UnixNano())
	csv := strings.Join([]string{
		"2024-01-15T10-00-00.0000Z;1.5;10.0",
		"2024-01-15T12-00-00.0000Z;2.5;20.0",
	}, "\n")

	code, body := upload(t, c.APIBase, name, csv)
	require.Equal(t, http.StatusOK, code, string(body))
	var up uploadResp
	require.NoError(t, json.Unmarshal(body, &up))
	require.Equal(t, name, up.FileName)
	require.NotEmpty(t, up.ResultID)

	var list []summary
	getJSON(t, c.APIBase+"/v1/results?"+url.Values{"fileName": {name}}.Encode(), &list)
	require.Len(t, list, 1)
	s := list[0]
	require.Equal(t, up.ResultID, s.ID)
	require.Equal(t, 7200.0, s.ElapsedSeconds)
	require.Equal(t, 2.0, s.AverageExecutionTime)
	require.Equal(t, 15.0, s.AverageValue)
	require.Equal(t, 15.0, s.MedianValue)
	require.Equal(t, 20.0, s.MaxValue)
	require.Equal(t, 10.0, s.MinValue)
	require.Equal(t, 2, s.RowCount)
	require.True(t, s.FirstOperationStart.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)))

	var recs []struct {
		Date  time.Time `json:"date"`
		Value float64   `json:"value"`
	}
	getJSON(t, c.APIBase+"/v1/files/"+url.PathEscape(name)+"/last-values", &recs)
	require.Len(t, recs, 2)
	require.Equal(t, 10.0, recs[0].Value)
	require.Equal(t, 20.0, recs[1].Value)
}

func Test_Upload_Rejected(t *testing.T) {
	c := loadCfg()
	waitHealthy(t, c)

	code, body := upload(t, c.APIBase, "notes.txt", "x")
	require.Equal(t, http.StatusBadRequest, code, string(body))

	name := fmt.Sprintf("e2e_bad_%d.csv", time.Now().UnixNano())
	code, body = upload(t, c.APIBase, name, "2024-01-15T10-00-00.0000Z;abc;1\n")
	require.Equal(t, http.StatusBadRequest, code, string(body))

	resp, err := http.Get(c.APIBase + "/v1/files/" + url.PathEscape(name) + "/last-values")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func Test_MetricsExposed(t *testing.T) {
	c := loadCfg()
	waitHealthy(t, c)

	resp, err := http.Get(c.APIBase + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	all, _ := io.ReadAll(resp.Body)
	require.Equal(t, 200, resp.StatusCode)
	require.Contains(t, string(all), "ingest_outcomes_total")
}
