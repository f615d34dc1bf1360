package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestConnector(t *testing.T, handler http.HandlerFunc, opts ...HttpOpts) (*Connector, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append(opts, WithRequestLogging())
	return NewConnector(&ConnectorConfig{BaseURL: srv.URL, Logger: zap.NewNop()}, opts...), srv
}

func TestDoRequest_SendsJSONAndDecodesAnswer(t *testing.T) {
	conn, _ := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/echo", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"got": in["query"]})
	}, WithAuthToken("secret"))

	var out map[string]string
	err := conn.DoRequest(context.Background(), http.MethodPost, "/echo", map[string]string{"query": "hi"}, &out)

	require.NoError(t, err)
	assert.Equal(t, "hi", out["got"])
}

func TestDoRequest_Non2xxIsHTTPError(t *testing.T) {
	conn, _ := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	err := conn.DoRequest(context.Background(), http.MethodGet, "/", nil, nil)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Contains(t, httpErr.Message, "boom")
}

func TestDoRequest_UnreachableIsNetworkError(t *testing.T) {
	conn, srv := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	err := conn.DoRequest(context.Background(), http.MethodGet, "/", nil, nil)

	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestDoMultipartRequest_StreamsFormFile(t *testing.T) {
	conn, _ := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)

		assert.Equal(t, "doc.pdf", header.Filename)
		assert.Equal(t, "PDF", string(content))
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	var out struct {
		OK bool `json:"ok"`
	}
	err := conn.DoMultipartRequest(context.Background(), http.MethodPost, "/upload", func(mw *multipart.Writer) error {
		part, err := mw.CreateFormFile("file", "doc.pdf")
		if err != nil {
			return err
		}
		_, err = part.Write([]byte("PDF"))
		return err
	}, &out)

	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestDownload_UsesOverrideURLAndLimit(t *testing.T) {
	conn, _ := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("base url must not be used")
	})
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer other.Close()

	body, err := conn.Download(context.Background(), "", WithURL(other.URL+"/file"), WithMaxBodySize(4))

	require.NoError(t, err)
	assert.Equal(t, "0123", string(body))
}
