package tests

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/payment"
	"github.com/Zeta-Naidi/Muallim-1-sub002/services/report"
)

func createPayment(t *testing.T, token, contact string, amount string, date string) payment.Record {
	t.Helper()
	rec := do(http.MethodPost, "/api/payments/records", token,
		[]byte(`{"parent_contact":"`+contact+`","amount":`+amount+`,"date":"`+date+`"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var r payment.Record
	unmarshal(t, rec, &r)
	return r
}

func Test_paymentApi_groups(t *testing.T) {
	setup(t)
	s := newSchool(t)
	token := getToken(t, s.admin)

	rec := do(http.MethodGet, "/api/payments/groups", getToken(t, s.teacher))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(http.MethodGet, "/api/payments/groups", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var groups []payment.Group
	unmarshal(t, rec, &groups)
	require.Len(t, groups, 2)

	amrani := groups[0]
	assert.Equal(t, "+393331234567", amrani.ParentContact)
	assert.Equal(t, "Karim Amrani", amrani.ParentName)
	assert.Equal(t, 2, amrani.ChildCount)
	assert.Equal(t, 220.0, amrani.TotalOwed)
	assert.Equal(t, payment.StatusUnpaid, amrani.Status)

	conti := groups[1]
	assert.Equal(t, 1, conti.ChildCount)
	assert.Equal(t, 120.0, conti.TotalOwed)

	createPayment(t, token, "+393331234567", "100", "2024-01-13")
	createPayment(t, token, "+393337654321", "120", "2024-01-13")

	rec = do(http.MethodGet, "/api/payments/groups?status=partial", token)
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshal(t, rec, &groups)
	require.Len(t, groups, 1)
	assert.Equal(t, "+393331234567", groups[0].ParentContact)
	assert.Equal(t, 100.0, groups[0].PaidAmount)
	assert.Equal(t, 120.0, groups[0].Remaining)

	var grp payment.Group
	rec = do(http.MethodGet, "/api/payments/groups/+393337654321", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &grp)
	assert.Equal(t, payment.StatusPaid, grp.Status)
	require.Len(t, grp.Records, 1)

	rec = do(http.MethodGet, "/api/payments/groups/+390000000000", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"no enrolled student with this parent contact"}`, rec.Body.String())

	rec = do(http.MethodGet, "/api/payments/summary", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum payment.Summary
	unmarshal(t, rec, &sum)
	assert.Equal(t, payment.Summary{
		Groups: 2, Paid: 1, Partial: 1, TotalOwed: 340, TotalPaid: 220, Outstanding: 120,
	}, sum)
}

func Test_paymentApi_exemptedGroup(t *testing.T) {
	setup(t)
	s := newSchool(t)
	token := getToken(t, s.admin)

	rec := do(http.MethodPut, "/api/students/"+s.sibling.ID, token, []byte(`{"payment_exempted":true}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var grp payment.Group
	rec = do(http.MethodGet, "/api/payments/groups/+393331234567", token)
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshal(t, rec, &grp)
	assert.True(t, grp.Exempted)
	assert.Equal(t, payment.StatusExempted, grp.Status)
	assert.Zero(t, grp.TotalOwed)

	// exempted families are never capped
	createPayment(t, token, "+393331234567", "50", "2024-01-13")
}

func Test_paymentApi_records(t *testing.T) {
	setup(t)
	s := newSchool(t)
	token := getToken(t, s.admin)

	runHTTPTests(t, []httpTest{
		{
			name:     "validation",
			method:   http.MethodPost,
			path:     "/api/payments/records",
			token:    token,
			body:     []byte(`{"amount":0,"date":"13/01/2024"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"parent_contact":"this field is required",
				"amount":"amount must be greater than 0",
				"date":"date must be a date formatted as YYYY-MM-DD"
			}`),
		},
		{
			name:     "unknown contact",
			method:   http.MethodPost,
			path:     "/api/payments/records",
			token:    token,
			body:     []byte(`{"parent_contact":"+390000000000","amount":10}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"parent_contact":"no enrolled student with this parent contact"}`),
		},
		{
			name:     "over the tuition",
			method:   http.MethodPost,
			path:     "/api/payments/records",
			token:    token,
			body:     []byte(`{"parent_contact":"+393337654321","amount":120.01}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"amount":"amount exceeds the tuition owed: at most 120.00 can still be paid (owed 120.00, already paid 0.00)"}`),
		},
	})

	first := createPayment(t, token, "+393331234567", "100.004", "2024-01-13")
	assert.Equal(t, 100.0, first.Amount)
	assert.Equal(t, s.admin.ID, first.RecordedBy)
	second := createPayment(t, token, "+393331234567", "100", "2024-02-10")

	t.Run("cap counts the other records", func(t *testing.T) {
		rec := do(http.MethodPost, "/api/payments/records", token, []byte(`{"parent_contact":"+393331234567","amount":21}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t,
			`{"amount":"amount exceeds the tuition owed: at most 20.00 can still be paid (owed 220.00, already paid 200.00)"}`,
			rec.Body.String())
	})

	t.Run("update within the cap", func(t *testing.T) {
		rec := do(http.MethodPut, "/api/payments/records/"+second.ID, token, []byte(`{"amount":120,"notes":"saldo"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var r payment.Record
		unmarshal(t, rec, &r)
		assert.Equal(t, 120.0, r.Amount)
		assert.Equal(t, "saldo", r.Notes)

		rec = do(http.MethodPut, "/api/payments/records/"+second.ID, token, []byte(`{"amount":121}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	runHTTPTests(t, []httpTest{
		{name: "unknown record", path: "/api/payments/records/nope", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "invalid date filter", path: "/api/payments/records?from=yesterday", token: token, wantCode: http.StatusBadRequest, wantData: []byte(`{"from":"invalid date"}`)},
	})

	t.Run("query", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/payments/records?from=2024-02-01", token)
		require.Equal(t, http.StatusOK, rec.Code)
		var records []payment.Record
		unmarshal(t, rec, &records)
		require.Len(t, records, 1)
		assert.Equal(t, second.ID, records[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(http.MethodDelete, "/api/payments/records/"+first.ID, token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = do(http.MethodGet, "/api/payments/records/"+first.ID, token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_paymentApi_export(t *testing.T) {
	setup(t)
	s := newSchool(t)
	token := getToken(t, s.admin)
	createPayment(t, token, "+393331234567", "100", "2024-01-13")

	rec := do(http.MethodGet, "/api/payments/export", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "payments-")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	families, err := f.GetRows(report.GroupsSheet)
	require.NoError(t, err)
	assert.Len(t, families, 3) // header and two families
	payments, err := f.GetRows(report.RecordsSheet)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}
