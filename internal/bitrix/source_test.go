package bitrix

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newSourceServer(t *testing.T, handler func(method string, req listRequest) listResponse) *Source {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req listRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(handler(r.URL.Path[1:], req))
	}))
	t.Cleanup(srv.Close)

	client := newTestClient(srv.URL)
	return NewSource(client, client, client, client)
}

func TestFetchLeads_MapsFields(t *testing.T) {
	source := newSourceServer(t, func(method string, req listRequest) listResponse {
		assert.Equal(t, "crm.lead.list", method)
		assert.Equal(t, "2025-06-16T00:00:01", req.Filter[">=DATE_CREATE"])
		assert.Equal(t, "2025-06-16T23:59:59", req.Filter["<=DATE_CREATE"])

		return listResponse{
			Result: []map[string]any{
				{
					"ID":             "101",
					"STATUS_ID":      "NEW",
					"ASSIGNED_BY_ID": "7",
					"DATE_CREATE":    "2025-06-16T10:00:00+03:00",
					"UTM_SOURCE":     "google",
					fieldTakenInWork: "2025-06-16T10:25:00+03:00",
				},
				{
					"ID":             "102",
					"STATUS_ID":      "NEW",
					"ASSIGNED_BY_ID": "7",
					"DATE_CREATE":    "2025-06-16T11:00:00+03:00",
				},
			},
			Total: 2,
		}
	})

	leads, err := source.FetchLeads(context.Background(), "2025-06-16", "2025-06-16")
	assert.NoError(t, err)
	assert.Len(t, leads, 2)

	assert.Equal(t, "101", leads[0].ID)
	assert.Equal(t, "7", leads[0].ManagerID)
	assert.Equal(t, "NEW", leads[0].StatusID)
	assert.Equal(t, "google", leads[0].Source)
	assert.NotNil(t, leads[0].TakenInWorkAt)
	assert.Equal(t, 25*time.Minute, leads[0].TakenInWorkAt.Sub(leads[0].CreatedAt))

	assert.Nil(t, leads[1].TakenInWorkAt)
	assert.Equal(t, "", leads[1].Source)
}

func TestFetchLeads_SkipsRecordsWithoutCreateDate(t *testing.T) {
	source := newSourceServer(t, func(method string, req listRequest) listResponse {
		return listResponse{
			Result: []map[string]any{
				{"ID": "101", "DATE_CREATE": "2025-06-16T10:00:00+03:00"},
				{"ID": "102"},
			},
			Total: 2,
		}
	})

	leads, err := source.FetchLeads(context.Background(), "2025-06-16", "2025-06-16")
	assert.NoError(t, err)
	assert.Len(t, leads, 1)
	assert.Equal(t, "101", leads[0].ID)
}

func TestFetchDeals_WonPipelineFilter(t *testing.T) {
	source := newSourceServer(t, func(method string, req listRequest) listResponse {
		assert.Equal(t, "crm.deal.list", method)
		assert.Equal(t, "WON", req.Filter["STAGE_ID"])
		assert.EqualValues(t, 0, req.Filter["CATEGORY_ID"])

		return listResponse{
			Result: []map[string]any{
				{
					"ID":              "555",
					"OPPORTUNITY":     "15000.50",
					"ASSIGNED_BY_ID":  "7",
					"CLOSEDATE":       "2025-06-16T18:30:00+03:00",
					"UTM_SOURCE":      "facebook",
					fieldContractType: "1206",
				},
			},
			Total: 1,
		}
	})

	deals, err := source.FetchDeals(context.Background(), "2025-06-16", "2025-06-16")
	assert.NoError(t, err)
	assert.Len(t, deals, 1)
	assert.Equal(t, "555", deals[0].ID)
	assert.Equal(t, 15000.50, deals[0].Amount)
	assert.Equal(t, "1206", deals[0].ContractTypeCode)
	assert.Equal(t, "facebook", deals[0].Source)
}

func TestFetchStaff_BuildsFullName(t *testing.T) {
	source := newSourceServer(t, func(method string, req listRequest) listResponse {
		assert.Equal(t, "user.get", method)
		return listResponse{
			Result: []map[string]any{
				{"ID": "7", "NAME": "Олена ", "LAST_NAME": " Коваленко"},
				{"ID": "8", "NAME": "Ivan", "LAST_NAME": "", "SECOND_NAME": ""},
			},
			Total: 2,
		}
	})

	staff, err := source.FetchStaff(context.Background())
	assert.NoError(t, err)
	assert.Len(t, staff, 2)
	assert.Equal(t, "Олена Коваленко", staff[0].FullName)
	assert.Equal(t, "Ivan", staff[1].FullName)
}

func TestFetchStatuses_MapsDictionary(t *testing.T) {
	source := newSourceServer(t, func(method string, req listRequest) listResponse {
		assert.Equal(t, "crm.status.list", method)
		return listResponse{
			Result: []map[string]any{
				{"STATUS_ID": "NEW", "NAME": "Новий"},
				{"STATUS_ID": "IN_PROCESS", "NAME": "В роботі"},
			},
			Total: 2,
		}
	})

	statuses, err := source.FetchStatuses(context.Background())
	assert.NoError(t, err)
	assert.Len(t, statuses, 2)
	assert.Equal(t, "NEW", statuses[0].StatusID)
	assert.Equal(t, "Новий", statuses[0].DisplayName)
}

func TestParseTime_SupportedLayouts(t *testing.T) {
	parsed, ok := parseTime("2025-06-16T10:00:00+03:00")
	assert.True(t, ok)
	assert.Equal(t, 10, parsed.Hour())

	parsed, ok = parseTime("2025-06-16T10:00:00")
	assert.True(t, ok)
	assert.Equal(t, 10, parsed.Hour())

	parsed, ok = parseTime("2025-06-16")
	assert.True(t, ok)
	assert.Equal(t, time.Month(6), parsed.Month())

	_, ok = parseTime("")
	assert.False(t, ok)

	_, ok = parseTime("not-a-date")
	assert.False(t, ok)
}

func TestAsFloat_Coercions(t *testing.T) {
	assert.Equal(t, 15000.5, asFloat(15000.5))
	assert.Equal(t, 15000.5, asFloat("15000.50"))
	assert.Equal(t, 0.0, asFloat(nil))
	assert.Equal(t, 0.0, asFloat("abc"))
}
