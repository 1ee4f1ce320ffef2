package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/attendance"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
)

func Test_classApi_classQuery(t *testing.T) {
	setup(t)
	s := newSchool(t)
	adminToken := getToken(t, s.admin)

	runHTTPTests(t, []httpTest{
		{name: "student forbidden", path: "/api/classes", token: getToken(t, s.studentUsr), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "all", path: "/api/classes", token: getToken(t, s.teacher), wantData: marchallList(t, s.class, s.class2)},
		{name: "by teacher", path: "/api/classes?teacher_id=" + s.teacher2.ID, token: adminToken, wantData: marchallList(t, s.class2)},
		{name: "detail", path: "/api/classes/" + s.class.ID, token: adminToken, wantData: marchallObj(t, s.class)},
		{name: "unknown", path: "/api/classes/nope", token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "students", path: "/api/classes/" + s.class2.ID + "/students", token: adminToken, wantData: marchallList(t, s.sibling, s.pupil2)},
	})
}

func Test_classApi_classCreate(t *testing.T) {
	setup(t)
	s := newSchool(t)
	adminToken := getToken(t, s.admin)

	runHTTPTests(t, []httpTest{
		{
			name:     "teacher forbidden",
			method:   http.MethodPost,
			path:     "/api/classes",
			token:    getToken(t, s.teacher),
			body:     []byte(`{"name":"Corano"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "name required",
			method:   http.MethodPost,
			path:     "/api/classes",
			token:    adminToken,
			body:     []byte(`{"name":"  "}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name":"this field is required"}`),
		},
		{
			name:     "not a teacher",
			method:   http.MethodPost,
			path:     "/api/classes",
			token:    adminToken,
			body:     []byte(`{"name":"Corano","teacher_id":"` + s.studentUsr.ID + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"teacher_id":"this user is not a teacher"}`),
		},
		{
			name:     "unknown teacher",
			method:   http.MethodPost,
			path:     "/api/classes",
			token:    adminToken,
			body:     []byte(`{"name":"Corano","teacher_id":"3f8a1d1e-5b1c-4f6a-9e2b-7c1d2e3f4a5b"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"teacher_id":"teacher not found"}`),
		},
	})

	rec := do(http.MethodPost, "/api/classes", adminToken, []byte(`{"name":"Corano","teacher_id":"`+s.teacher.ID+`"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c student.Class
	unmarshal(t, rec, &c)
	assert.Equal(t, "Corano", c.Name)
	assert.Equal(t, s.teacher.ID, c.TeacherID)
	assert.Empty(t, c.StudentIDs)

	rec = do(http.MethodPut, "/api/classes/"+c.ID, adminToken, []byte(`{"teacher_id":"`+s.teacher2.ID+`"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &c)
	assert.Equal(t, "Corano", c.Name)
	assert.Equal(t, s.teacher2.ID, c.TeacherID)
}

func Test_classApi_classAttendance(t *testing.T) {
	setup(t)
	s := newSchool(t)
	path := "/api/classes/" + s.class2.ID + "/attendance"
	body := func(date string) []byte {
		return []byte(`{"date":"` + date + `","entries":[
			{"student_id":"` + s.sibling.ID + `","status":"present"},
			{"student_id":"` + s.pupil2.ID + `","status":"Absent","notes":"sick"}
		]}`)
	}

	runHTTPTests(t, []httpTest{
		{
			name:     "not the class teacher",
			method:   http.MethodPost,
			path:     path,
			token:    getToken(t, s.teacher),
			body:     body("2024-03-02"),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "not a school day",
			method:   http.MethodPost,
			path:     path,
			token:    getToken(t, s.teacher2),
			body:     body("2024-03-04"),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"date":"2024-03-04 is not a school day (Saturday, Sunday)"}`),
		},
		{
			name:     "student of another class",
			method:   http.MethodPost,
			path:     path,
			token:    getToken(t, s.admin),
			body:     []byte(`{"date":"2024-03-02","entries":[{"student_id":"` + s.pupil.ID + `","status":"present"}]}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"entries[0].student_id":"the student does not belong to the class"}`),
		},
	})

	rec := do(http.MethodPost, path, getToken(t, s.teacher2), body("2024-03-02"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var records []attendance.Record
	unmarshal(t, rec, &records)
	require.Len(t, records, 2)
	assert.Equal(t, attendance.StatusAbsent, records[1].Status)
	assert.Equal(t, s.teacher2.ID, records[1].MarkedBy)

	// marking again replaces the records of the day
	rec = do(http.MethodPost, path, getToken(t, s.teacher2), body("2024-03-02"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stored, err := attRepo.Query(context.Background(), &attendance.QueryFilter{ClassID: s.class2.ID})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func Test_classApi_classDelete(t *testing.T) {
	setup(t)
	s := newSchool(t)
	path := "/api/classes/" + s.class.ID

	rec := do(http.MethodDelete, path, getToken(t, s.teacher))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(http.MethodDelete, path, getToken(t, s.admin))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := stdRepo.GetClass(context.Background(), s.class.ID)
	assert.Equal(t, student.ErrClassNotFound, err)
	pupil, err := stdRepo.GetStudent(context.Background(), s.pupil.ID)
	require.NoError(t, err)
	assert.Empty(t, pupil.ClassID)
}
