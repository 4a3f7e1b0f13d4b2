package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	scoped := NewScopedAPI("ejudge", NewScopedAPI("client", rec))

	scoped.ReportBroken("fetch", "a")
	scoped.ReportWarning("login", 1)
	scoped.ReportCount("online", 3)

	reports := rec.Reports()
	require.Len(t, reports, 3)
	require.Equal(t, "client: ejudge: fetch", reports[0].ID)
	require.Equal(t, []any{"a"}, reports[0].Params)
	require.Equal(t, "warning", reports[1].Kind)
	require.Equal(t, []any{int64(3)}, reports[2].Params)

	require.Len(t, rec.Find("broken", "fetch"), 1)
	require.Empty(t, rec.Find("broken", "login"))
}

func TestSlogAPI(t *testing.T) {
	buf := &bytes.Buffer{}
	api := NewSlogAPI(slog.New(NewSlogHandler(true, buf)))

	api.ReportBroken("client.fetch", "boom")
	api.ReportDebug("hello", 42)

	out := buf.String()
	require.Contains(t, out, "broken component")
	require.Contains(t, out, "client.fetch")
	require.Contains(t, out, "params.0")
	require.Contains(t, out, "hello")
}

type memOutput map[string]string

func (m memOutput) Write(id, contents string) {
	m[id] = contents
}

func TestInstrumentResty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.Write([]byte("body text"))
	}))
	defer srv.Close()

	rec := &Recorder{}
	out := memOutput{}
	client := resty.New().SetBaseURL(srv.URL)
	InstrumentResty(client, rec, out)

	_, err := client.R().SetContext(context.Background()).Get("/page")
	require.NoError(t, err)

	require.Len(t, rec.Find("debug", report_resty_request), 1)
	require.Len(t, rec.Find("debug", report_resty_response), 1)
	require.Contains(t, out["1"], "X-Test: yes")
	require.Contains(t, out["1"], "body text")
	require.Contains(t, out["1"], "<NO BODY AVAILABLE>")

	_, err = client.R().SetContext(context.Background()).SetFormData(map[string]string{"a": "b"}).Post("/form")
	require.NoError(t, err)
	require.Contains(t, out["2"], "POST "+srv.URL+"/form")
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	output.Write("7", "contents")
	data, err := os.ReadFile(filepath.Join(dir, "7.txt"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(data))
}

func TestSetupOtelDisabled(t *testing.T) {
	o, err := SetupOtel(context.Background(), "test", OtlpConfig{})
	require.NoError(t, err)
	require.Nil(t, o.TracerProvider)
	require.Nil(t, o.MeterProvider)
	require.NoError(t, o.Shutdown(context.Background()))
}
