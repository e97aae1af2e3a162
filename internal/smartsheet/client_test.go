package smartsheet

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSheetJSON() string {
	return `{
		"id": 4583173393803140,
		"name": "Institutional Performance",
		"columns": [
			{"id": 101, "title": "Institution Code", "type": "TEXT_NUMBER"},
			{"id": 102, "title": "Variable Code", "type": "TEXT_NUMBER"},
			{"id": 103, "title": "Actual", "type": "TEXT_NUMBER"}
		],
		"rows": [
			{"id": 1, "cells": [
				{"columnId": 101, "value": "MOH"},
				{"columnId": 102, "value": "compact_disb"},
				{"columnId": 103, "value": 95.5}
			]},
			{"id": 2, "cells": [
				{"columnId": 101, "value": "MOE"},
				{"columnId": 102},
				{"columnId": 999, "value": "orphan column"}
			]}
		]
	}`
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewClient("test-token", srv.URL)
}

func TestTestConnection(t *testing.T) {
	var gotAuth string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/me", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"email": "sync@mcc.gov", "firstName": "Sync", "lastName": "Bot"}`)
	})

	user, err := client.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sync@mcc.gov", user.Email)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestTestConnectionUnauthorized(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"errorCode": 1002, "message": "Your Access Token is invalid."}`)
	})

	_, err := client.TestConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Your Access Token is invalid.")
	assert.Contains(t, err.Error(), "status 401")
}

func TestGetSheetRecords(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sheets/4583173393803140", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, fakeSheetJSON())
	})

	sheet, err := client.GetSheet(context.Background(), "4583173393803140")
	require.NoError(t, err)
	assert.Equal(t, "Institutional Performance", sheet.Name)

	records := sheet.Records()
	require.Len(t, records, 2)

	assert.Equal(t, "MOH", records[0]["Institution Code"])
	assert.Equal(t, "compact_disb", records[0]["Variable Code"])
	assert.Equal(t, 95.5, records[0]["Actual"])

	// empty cells and cells from unknown columns are dropped
	assert.Equal(t, Record{"Institution Code": "MOE"}, records[1])
}

func TestAddRowResolvesColumnsByTitle(t *testing.T) {
	var posted []Row
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet:
			io.WriteString(w, fakeSheetJSON())
		case r.Method == http.MethodPost:
			require.Equal(t, "/sheets/4583173393803140/rows", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			io.WriteString(w, `{"resultCode": 0}`)
		}
	})

	err := client.AddRow(context.Background(), "4583173393803140", map[string]any{
		"Institution Code": "MOH",
		"Actual":           88.0,
		"Not A Column":     "ignored",
	})
	require.NoError(t, err)

	require.Len(t, posted, 1)
	require.Len(t, posted[0].Cells, 2)
	byColumn := make(map[int64]any)
	for _, cell := range posted[0].Cells {
		byColumn[cell.ColumnID] = cell.Value
	}
	assert.Equal(t, "MOH", byColumn[101])
	assert.Equal(t, 88.0, byColumn[103])
}

func TestAddRowNoMatchingColumns(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, fakeSheetJSON())
	})

	err := client.AddRow(context.Background(), "4583173393803140", map[string]any{
		"Not A Column": "value",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no values matched sheet columns")
}
