//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

const demoCSV = "2024-01-15T10-00-00.0000Z;1.5;10.0\n" +
	"2024-01-15T11-00-00.0000Z;2.0;30.0\n" +
	"2024-01-15T12-00-00.0000Z;2.5;20.0\n"

func TestUpload_ReplacesAndPublishes(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.APIBase+"/healthz", 60*time.Second)
	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	name := UniqueName("it-demo")

	code, body := UploadCSV(t, cfg.APIBase, name, demoCSV)
	if code != http.StatusOK {
		t.Fatalf("upload: got %d body=%s", code, body)
	}
	var up struct {
		ResultID string `json:"resultId"`
		FileName string `json:"fileName"`
	}
	if err := json.Unmarshal(body, &up); err != nil {
		t.Fatalf("unmarshal upload: %v body=%s", err, body)
	}
	if up.ResultID == "" || up.FileName != name {
		t.Fatalf("unexpected upload response: %s", body)
	}
	if n := CountRecords(t, db, name); n != 3 {
		t.Fatalf("records after first upload: got %d want 3", n)
	}

	// second upload replaces the first one entirely
	code, body = UploadCSV(t, cfg.APIBase, name, "2024-02-01T00-00-00.0000Z;4;8\n")
	if code != http.StatusOK {
		t.Fatalf("re-upload: got %d body=%s", code, body)
	}
	if n := CountRecords(t, db, name); n != 1 {
		t.Fatalf("records after replace: got %d want 1", n)
	}
	if rc, ok := SummaryRowCount(t, db, name); !ok || rc != 1 {
		t.Fatalf("summary after replace: ok=%v row_count=%d", ok, rc)
	}

	WaitTCP(t, "kafka", cfg.KafkaBootstrap, 30*time.Second)
	ev, ok := ReadUntil(t, cfg.KafkaBootstrap, cfg.SummaryTopic, "it-"+name, 45*time.Second,
		func() *structpb.Struct { return &structpb.Struct{} },
		func(key []byte, m *structpb.Struct) bool {
			return string(key) == name && m.GetFields()["row_count"].GetNumberValue() == 1
		},
	)
	if !ok {
		t.Fatalf("no summary event for %s on %s", name, cfg.SummaryTopic)
	}
	if got := ev.GetFields()["average_value"].GetNumberValue(); got != 8 {
		t.Fatalf("event average_value: got %v want 8", got)
	}
}

func TestUpload_InvalidFileLeavesStoreUntouched(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.APIBase+"/healthz", 60*time.Second)
	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	name := UniqueName("it-invalid")
	if code, body := UploadCSV(t, cfg.APIBase, name, demoCSV); code != http.StatusOK {
		t.Fatalf("seed upload: got %d body=%s", code, body)
	}

	code, body := UploadCSV(t, cfg.APIBase, name, "2024-01-15T10-00-00.0000Z;1;-5\n1999-01-01T00-00-00.0000Z;1;1\n")
	if code != http.StatusBadRequest {
		t.Fatalf("invalid upload: got %d body=%s", code, body)
	}
	var rej struct {
		Errors []string `json:"errors"`
	}
	_ = json.Unmarshal(body, &rej)
	if len(rej.Errors) != 2 {
		t.Fatalf("want 2 violations, got %v", rej.Errors)
	}
	if n := CountRecords(t, db, name); n != 3 {
		t.Fatalf("records changed by rejected upload: got %d want 3", n)
	}
}

func TestResultsAndLastValues(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.APIBase+"/healthz", 60*time.Second)

	name := UniqueName("it-query")
	if code, body := UploadCSV(t, cfg.APIBase, name, demoCSV); code != http.StatusOK {
		t.Fatalf("upload: got %d body=%s", code, body)
	}

	q := url.Values{"fileName": {name}, "averageValueFrom": {"19.9"}, "averageValueTo": {"20.1"}}
	code, body := HTTPGet(t, cfg.APIBase+"/v1/results?"+q.Encode())
	if code != http.StatusOK {
		t.Fatalf("results: got %d body=%s", code, body)
	}
	var list []struct {
		FileName    string  `json:"fileName"`
		MedianValue float64 `json:"medianValue"`
		RowCount    int     `json:"rowCount"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("unmarshal results: %v", err)
	}
	if len(list) != 1 || list[0].MedianValue != 20 || list[0].RowCount != 3 {
		t.Fatalf("unexpected results: %s", body)
	}

	code, body = HTTPGet(t, cfg.APIBase+"/v1/files/"+url.PathEscape(strings.TrimSuffix(name, ".csv"))+"/last-values")
	if code != http.StatusOK {
		t.Fatalf("last-values: got %d body=%s", code, body)
	}
	var recs []struct {
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(body, &recs); err != nil {
		t.Fatalf("unmarshal last-values: %v", err)
	}
	if len(recs) != 3 || recs[0].Value != 10 || recs[2].Value != 20 {
		t.Fatalf("unexpected last-values: %s", body)
	}

	code, _ = HTTPGet(t, cfg.APIBase+"/v1/files/"+url.PathEscape(UniqueName("it-missing"))+"/last-values")
	if code != http.StatusNotFound {
		t.Fatalf("missing file: got %d want 404", code)
	}
}
