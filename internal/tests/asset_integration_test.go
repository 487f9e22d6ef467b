//go:build integration

package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"it-inventory-api/internal/inventory"
	"it-inventory-api/internal/models"
)

func TestAssetIntegration(t *testing.T) {
	srv := newTestServer(t)
	_, token := srv.signUp(t, "admin")

	w := srv.call(t, http.MethodPost, "/api/employees", token, models.CreateEmployeeRequest{Email: "ada@example.com", FullName: "Ada Lovelace"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ada models.Employee
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ada))

	serial := "C02XK0AAJG5J"
	warranty := models.DateOf(time.Now()).AddDays(45)
	var asset inventory.AssetView

	t.Run("CreateAsset", func(t *testing.T) {
		w := srv.call(t, http.MethodPost, "/api/assets", token, models.CreateAssetRequest{
			AssetType:    models.AssetTypeLaptop,
			Name:         "MacBook Pro 14",
			SerialNumber: &serial,
			WarrantyEnd:  &warranty,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &asset))
		assert.Equal(t, "LAP-001", asset.AssetTag)
		assert.Equal(t, models.StatusAvailable, asset.Status)
		require.NotNil(t, asset.WarrantyDaysRemaining)
		assert.Equal(t, 45, *asset.WarrantyDaysRemaining)
	})

	t.Run("DuplicateSerial", func(t *testing.T) {
		w := srv.call(t, http.MethodPost, "/api/assets", token, models.CreateAssetRequest{
			AssetType:    models.AssetTypeLaptop,
			Name:         "Second MacBook",
			SerialNumber: &serial,
		})
		assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	})

	t.Run("ListAssets", func(t *testing.T) {
		w := srv.call(t, http.MethodGet, "/api/assets?q=macbook&sort=-asset_tag", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Contains(t, response, "data")
		assert.Contains(t, response, "meta")
		assert.EqualValues(t, 1, response["meta"].(map[string]interface{})["total"])
	})

	t.Run("AssignRepairAndFix", func(t *testing.T) {
		path := fmt.Sprintf("/api/assets/%d", asset.ID)

		w := srv.call(t, http.MethodPost, path+"/assign", token, models.AssignRequest{EmployeeID: &ada.ID})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.Len(t, srv.sender.Messages(), 1)
		assert.Equal(t, []string{"ada@example.com"}, srv.sender.Messages()[0].To)

		w = srv.call(t, http.MethodPost, path+"/repairs", token, models.CreateRepairRequest{IssueDescription: "Battery swelling", IsWarrantyRepair: true, Cost: 300})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = srv.call(t, http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var detail inventory.AssetDetail
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
		assert.Equal(t, models.StatusRepair, detail.Status)
		assert.Equal(t, 0.0, detail.TotalRepairCost)
		assert.Len(t, detail.Repairs, 1)

		w = srv.call(t, http.MethodPost, path+"/mark-fixed", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var fixed inventory.AssetView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fixed))
		assert.Equal(t, models.StatusActive, fixed.Status)
	})

	t.Run("DeactivateEmployee", func(t *testing.T) {
		w := srv.call(t, http.MethodDelete, fmt.Sprintf("/api/employees/%d", ada.ID), token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = srv.call(t, http.MethodGet, fmt.Sprintf("/api/employees/%d/assets", ada.ID), token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var held []inventory.AssetView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &held))
		assert.Empty(t, held)

		w = srv.call(t, http.MethodPost, fmt.Sprintf("/api/assets/%d/assign", asset.ID), token, models.AssignRequest{EmployeeID: &ada.ID})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Dashboard", func(t *testing.T) {
		w := srv.call(t, http.MethodGet, "/api/dashboard/stats", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var stats inventory.DashboardStats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, 1, stats.TotalAssets)
		assert.Equal(t, 1, stats.AvailableAssets)
		assert.Equal(t, 1, stats.WarrantiesExpiring90)

		w = srv.call(t, http.MethodGet, "/api/dashboard/warranty-alerts", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var alerts []inventory.WarrantyAlert
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alerts))
		require.Len(t, alerts, 1)
		assert.Equal(t, 45, alerts[0].DaysRemaining)
	})

	t.Run("DecommissionTwice", func(t *testing.T) {
		path := fmt.Sprintf("/api/assets/%d/decommission", asset.ID)
		w := srv.call(t, http.MethodPost, path, token, models.DecommissionRequest{Reason: "Lost in transit"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		w = srv.call(t, http.MethodPost, path, token, models.DecommissionRequest{Reason: "Lost in transit"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}
