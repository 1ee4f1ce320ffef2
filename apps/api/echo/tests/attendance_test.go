package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/attendance"
)

func markAttendance(t *testing.T, token, studentID, date string, status attendance.Status) attendance.Record {
	t.Helper()
	rec := do(http.MethodPost, "/api/attendance", token,
		[]byte(`{"student_id":"`+studentID+`","date":"`+date+`","status":"`+string(status)+`"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var r attendance.Record
	unmarshal(t, rec, &r)
	return r
}

func Test_attendanceApi_mark(t *testing.T) {
	setup(t)
	s := newSchool(t)
	teacherToken := getToken(t, s.teacher)

	runHTTPTests(t, []httpTest{
		{
			name:     "student forbidden",
			method:   http.MethodPost,
			path:     "/api/attendance",
			token:    getToken(t, s.studentUsr),
			body:     []byte(`{"student_id":"` + s.pupil.ID + `","date":"2024-03-02","status":"present"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "validation",
			method:   http.MethodPost,
			path:     "/api/attendance",
			token:    teacherToken,
			body:     []byte(`{"date":"2024-03-02","status":"late"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"student_id":"this field is required","status":"status must be one of [present absent justified]"}`),
		},
		{
			name:     "student of another class",
			method:   http.MethodPost,
			path:     "/api/attendance",
			token:    teacherToken,
			body:     []byte(`{"student_id":"` + s.pupil2.ID + `","date":"2024-03-02","status":"present"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "unknown student",
			method:   http.MethodPost,
			path:     "/api/attendance",
			token:    teacherToken,
			body:     []byte(`{"student_id":"nope","date":"2024-03-02","status":"present"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"student_id":"student not found"}`),
		},
		{
			name:     "weekday",
			method:   http.MethodPost,
			path:     "/api/attendance",
			token:    teacherToken,
			body:     []byte(`{"student_id":"` + s.pupil.ID + `","date":"2024-03-04","status":"present"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"date":"2024-03-04 is not a school day (Saturday, Sunday)"}`),
		},
	})

	first := markAttendance(t, teacherToken, s.pupil.ID, "2024-03-02", attendance.StatusAbsent)
	assert.Equal(t, s.class.ID, first.ClassID)
	assert.Equal(t, s.teacher.ID, first.MarkedBy)

	// one record per student and day
	second := markAttendance(t, getToken(t, s.admin), s.pupil.ID, "2024-03-02", attendance.StatusJustified)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, attendance.StatusJustified, second.Status)
	assert.Equal(t, s.admin.ID, second.MarkedBy)

	records, err := attRepo.Query(context.Background(), &attendance.QueryFilter{StudentID: s.pupil.ID})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func Test_attendanceApi_query(t *testing.T) {
	setup(t)
	s := newSchool(t)
	token := getToken(t, s.teacher)
	token2 := getToken(t, s.teacher2)

	r1 := markAttendance(t, token, s.pupil.ID, "2024-03-02", attendance.StatusPresent)
	r2 := markAttendance(t, token, s.pupil.ID, "2024-03-09", attendance.StatusAbsent)
	r3 := markAttendance(t, token2, s.pupil2.ID, "2024-03-09", attendance.StatusPresent)

	runHTTPTests(t, []httpTest{
		{name: "school days", path: "/api/attendance/school-days", token: token, wantData: []byte(`["Saturday","Sunday"]`)},
		{name: "by student", path: "/api/attendance?student_id=" + s.pupil.ID, token: token, wantData: marchallList(t, r1, r2)},
		{name: "by class", path: "/api/attendance?class_id=" + s.class2.ID, token: token, wantData: marchallList(t, r3)},
		{name: "by status", path: "/api/attendance?status=present", token: token, wantData: marchallList(t, r1, r3)},
		{name: "by date", path: "/api/attendance?from=2024-03-03&to=2024-03-09", token: token, wantData: marchallList(t, r2, r3)},
		{name: "invalid date", path: "/api/attendance?to=tomorrow", token: token, wantCode: http.StatusBadRequest, wantData: []byte(`{"to":"invalid date"}`)},
		{name: "delete unknown", method: http.MethodDelete, path: "/api/attendance/nope", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "delete by another teacher", method: http.MethodDelete, path: "/api/attendance/" + r1.ID, token: token2, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "delete", method: http.MethodDelete, path: "/api/attendance/" + r1.ID, token: token, wantCode: http.StatusNoContent},
		{name: "deleted", path: "/api/attendance?student_id=" + s.pupil.ID, token: token, wantData: marchallList(t, r2)},
	})
}

func Test_attendanceApi_monthlyReport(t *testing.T) {
	setup(t)
	s := newSchool(t)
	token := getToken(t, s.teacher)

	markAttendance(t, token, s.pupil.ID, "2024-03-02", attendance.StatusPresent)
	markAttendance(t, token, s.pupil.ID, "2024-03-03", attendance.StatusPresent)
	markAttendance(t, token, s.pupil.ID, "2024-03-09", attendance.StatusAbsent)
	markAttendance(t, token, s.pupil.ID, "2024-03-10", attendance.StatusJustified)
	markAttendance(t, token, s.pupil.ID, "2024-04-06", attendance.StatusPresent)

	path := "/api/students/" + s.pupil.ID + "/attendance"
	rec := do(http.MethodGet, path+"?year=2024&month=3", getToken(t, s.studentUsr))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep attendance.MonthlyReport
	unmarshal(t, rec, &rep)
	assert.Equal(t, s.pupil.ID, rep.StudentID)
	assert.Equal(t, 2024, rep.Year)
	assert.Equal(t, 3, rep.Month)
	assert.Equal(t, 10, rep.SchoolDays)
	assert.Equal(t, 2, rep.Present)
	assert.Equal(t, 1, rep.Absent)
	assert.Equal(t, 1, rep.Justified)
	assert.Equal(t, 20, rep.Rate)
	assert.Len(t, rep.Records, 4)

	runHTTPTests(t, []httpTest{
		{name: "invalid month", path: path + "?year=2024&month=13", token: token, wantCode: http.StatusBadRequest, wantData: []byte(`{"month":"invalid month"}`)},
		{name: "invalid year", path: path + "?year=zero", token: token, wantCode: http.StatusBadRequest, wantData: []byte(`{"year":"invalid year"}`)},
		{name: "other student", path: path + "?year=2024&month=3", token: getToken(t, s.studentUsr2), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	})
}
