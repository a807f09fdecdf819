package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telhawk-systems/stixbridge/internal/service"
)

const sampleExport = `{
	"Event": {
		"uuid": "5e8a2b3c-0001-4000-8000-000000000001",
		"info": "handler test",
		"date": "2020-10-25",
		"timestamp": "1603642920",
		"Orgc": {"name": "CIRCL", "uuid": "55f6ea5e-2c60-40e5-964f-47a8950d210f"},
		"Attribute": [
			{
				"uuid": "a1b2c3d4-0001-4000-8000-000000000001",
				"type": "domain",
				"category": "Network activity",
				"value": "evil.example",
				"to_ids": true,
				"timestamp": "1603642920"
			}
		]
	}
}`

func newHandler() *ConverterHandler {
	return NewConverterHandler(service.NewConverter(nil))
}

func TestConvertEndpoint(t *testing.T) {
	h := newHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert", strings.NewReader(sampleExport))
	rec := httptest.NewRecorder()
	h.Convert(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	// The bundle holds interface-typed objects, so the response is decoded
	// generically rather than back into ConvertResponse.
	var resp struct {
		Results []struct {
			EventUUID string         `json:"event_uuid"`
			Bundle    map[string]any `json:"bundle"`
		} `json:"results"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "5e8a2b3c-0001-4000-8000-000000000001", resp.Results[0].EventUUID)
	assert.Equal(t, "bundle--5e8a2b3c-0001-4000-8000-000000000001", resp.Results[0].Bundle["id"])
	assert.Equal(t, "2.0", resp.Results[0].Bundle["spec_version"])
}

func TestConvertEndpointRejectsBadExport(t *testing.T) {
	h := newHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert", strings.NewReader(`{"response": []}`))
	rec := httptest.NewRecorder()
	h.Convert(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "conversion_failed", body.Code)
}

func TestConvertEndpointMethodNotAllowed(t *testing.T) {
	h := newHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/convert", nil)
	rec := httptest.NewRecorder()
	h.Convert(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST", rec.Header().Get("Allow"))
}

func TestReadyEndpoint(t *testing.T) {
	h := newHandler()

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Ready(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var ready struct {
		Status string            `json:"status"`
		Sinks  map[string]string `json:"sinks"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ready))
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "ok", ready.Sinks["status"])
}

func TestHealthEndpoint(t *testing.T) {
	h := newHandler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "ok", status["status"])
}
