package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend/internal/apperrors"
	"backend/internal/model"
	"backend/internal/smartsheet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const syncSheetJSON = `{
	"id": 4583173393803140,
	"name": "Institutional Performance",
	"columns": [
		{"id": 101, "title": "Institution Code"},
		{"id": 102, "title": "Institution Name"},
		{"id": 103, "title": "Variable Code"},
		{"id": 104, "title": "Variable Name"},
		{"id": 105, "title": "Category"},
		{"id": 106, "title": "Month"},
		{"id": 107, "title": "Year"},
		{"id": 108, "title": "Baseline"},
		{"id": 109, "title": "Actual"},
		{"id": 110, "title": "Notes"}
	],
	"rows": [
		{"id": 1, "cells": [
			{"columnId": 101, "value": "MOH"},
			{"columnId": 102, "value": "Ministry of Health"},
			{"columnId": 103, "value": "compact_disb"},
			{"columnId": 104, "value": "Compact Disbursement"},
			{"columnId": 105, "value": "Financial"},
			{"columnId": 106, "value": "January"},
			{"columnId": 107, "value": 2026},
			{"columnId": 108, "value": 100},
			{"columnId": 109, "value": 90}
		]},
		{"id": 2, "cells": [
			{"columnId": 101, "value": "MOE"},
			{"columnId": 106, "value": "January"}
		]}
	]
}`

func smartsheetFixture(t *testing.T, sheetJSON string) (*memInstitutionRepo, *memPerformanceRepo, *recordingAudit, SmartsheetService) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, sheetJSON)
	}))
	t.Cleanup(srv.Close)

	instRepo := newMemInstitutionRepo()
	perfRepo := newMemPerformanceRepo(instRepo)
	audit := &recordingAudit{}
	client := smartsheet.NewClient("test-token", srv.URL)
	svc := NewSmartsheetService(client, "4583173393803140", instRepo, perfRepo, passthroughTx{}, audit)
	return instRepo, perfRepo, audit, svc
}

func TestSyncPerformanceImportsAndSkips(t *testing.T) {
	instRepo, perfRepo, audit, svc := smartsheetFixture(t, syncSheetJSON)

	result, err := svc.SyncPerformance(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "Institutional Performance", result.SheetName)
	assert.Equal(t, 2, result.RowsSeen)
	assert.Equal(t, 1, result.RowsImported)
	assert.Equal(t, 1, result.RowsSkipped) // second row has no variable code or year

	inst, err := instRepo.GetByCode(context.Background(), "MOH")
	require.NoError(t, err)
	assert.Equal(t, "Ministry of Health", inst.Name)
	assert.Equal(t, model.InstitutionStatusActive, inst.Status)

	variable, err := perfRepo.GetVariableByCode(context.Background(), "compact_disb")
	require.NoError(t, err)
	assert.Equal(t, "Compact Disbursement", variable.Name)

	require.Len(t, perfRepo.records, 1)
	rec := perfRepo.records[0]
	assert.Equal(t, inst.ID, rec.InstitutionID)
	assert.Equal(t, "January", rec.Month)
	assert.Equal(t, 2026, rec.Year)
	assert.Equal(t, model.StatusYellow, rec.Status)

	assert.Equal(t, []string{model.ActionSmartsheetSync}, audit.actions)
}

func TestSyncPerformanceIsIdempotent(t *testing.T) {
	_, perfRepo, _, svc := smartsheetFixture(t, syncSheetJSON)

	_, err := svc.SyncPerformance(context.Background(), nil)
	require.NoError(t, err)
	_, err = svc.SyncPerformance(context.Background(), nil)
	require.NoError(t, err)

	// re-running the import must not duplicate the period row
	assert.Len(t, perfRepo.records, 1)
}

func TestSyncPerformanceUnconfigured(t *testing.T) {
	svc := NewSmartsheetService(nil, "", newMemInstitutionRepo(), newMemPerformanceRepo(nil), passthroughTx{}, &recordingAudit{})

	_, err := svc.SyncPerformance(context.Background(), nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	status, err := svc.TestConnection(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Connected)
}
