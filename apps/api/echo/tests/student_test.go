package tests

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
	"github.com/Zeta-Naidi/Muallim-1-sub002/services/report"
	testutil "github.com/Zeta-Naidi/Muallim-1-sub002/tests"
)

func Test_studentApi_studentQuery(t *testing.T) {
	setup(t)
	s := newSchool(t)
	adminToken := getToken(t, s.admin)
	teacherToken := getToken(t, s.teacher)

	runHTTPTests(t, []httpTest{
		{name: "no token", path: "/api/students", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "student forbidden", path: "/api/students", token: getToken(t, s.studentUsr), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "teacher", path: "/api/students", token: teacherToken, wantData: marchallList(t, s.sibling, s.pupil, s.pupil2)},
		{name: "by class", path: "/api/students?class_id=" + s.class2.ID, token: adminToken, wantData: marchallList(t, s.sibling, s.pupil2)},
		{name: "search", path: "/api/students?search=AMRANI", token: adminToken, wantData: marchallList(t, s.sibling, s.pupil)},
		{name: "parent contact", path: "/api/students?parent_contact=%2B393337654321", token: adminToken, wantData: marchallList(t, s.pupil2)},
		{name: "no match", path: "/api/students?search=nobody", token: adminToken, wantData: []byte("[]")},
	})
}

func Test_studentApi_studentCreate(t *testing.T) {
	setup(t)
	s := newSchool(t)
	adminToken := getToken(t, s.admin)
	inactive := testutil.CreateUser(t, usrRepo, "Nadia Karimi", "nkarimi", "nkarimi@muallim.test", testPwd, []string{user.RoleStudent}, false)
	login := testutil.CreateUser(t, usrRepo, "Omar Said", "osaid", "osaid@muallim.test", testPwd, []string{user.RoleStudent}, true)

	runHTTPTests(t, []httpTest{
		{
			name:     "teacher forbidden",
			method:   http.MethodPost,
			path:     "/api/students",
			token:    getToken(t, s.teacher),
			body:     []byte(`{"first_name":"Omar","last_name":"Said"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "required fields",
			method:   http.MethodPost,
			path:     "/api/students",
			token:    adminToken,
			body:     []byte(`{"parent_contact":"not a phone","birth_date":"02/03/2015"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"first_name":"this field is required",
				"last_name":"this field is required",
				"birth_date":"birth_date must be a date formatted as YYYY-MM-DD",
				"parent_contact":"parent_contact must be a valid phone number"
			}`),
		},
		{
			name:     "class not found",
			method:   http.MethodPost,
			path:     "/api/students",
			token:    adminToken,
			body:     []byte(`{"first_name":"Omar","last_name":"Said","class_id":"3f8a1d1e-5b1c-4f6a-9e2b-7c1d2e3f4a5b"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"class_id":"class not found"}`),
		},
		{
			name:     "login of another student",
			method:   http.MethodPost,
			path:     "/api/students",
			token:    adminToken,
			body:     []byte(`{"first_name":"Omar","last_name":"Said","user_id":"` + s.studentUsr.ID + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"user_id":"this user is already linked to another student"}`),
		},
		{
			name:     "teacher login",
			method:   http.MethodPost,
			path:     "/api/students",
			token:    adminToken,
			body:     []byte(`{"first_name":"Omar","last_name":"Said","user_id":"` + s.teacher.ID + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"user_id":"this user is not an active student"}`),
		},
		{
			name:     "inactive login",
			method:   http.MethodPost,
			path:     "/api/students",
			token:    adminToken,
			body:     []byte(`{"first_name":"Omar","last_name":"Said","user_id":"` + inactive.ID + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"user_id":"this user is not an active student"}`),
		},
		{
			name:     "unknown login",
			method:   http.MethodPost,
			path:     "/api/students",
			token:    adminToken,
			body:     []byte(`{"first_name":"Omar","last_name":"Said","user_id":"3f8a1d1e-5b1c-4f6a-9e2b-7c1d2e3f4a5b"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"user_id":"user not found"}`),
		},
	})

	rec := do(http.MethodPost, "/api/students", adminToken, []byte(`{
		"first_name":" Omar ","last_name":"Said","class_id":"`+s.class.ID+`","user_id":"`+login.ID+`",
		"birth_date":"2015-04-20","parent_contact":"+393339876543","parent_email":"Said@Example.com"
	}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created student.Student
	unmarshal(t, rec, &created)
	assert.Equal(t, "Omar", created.FirstName)
	assert.Equal(t, "said@example.com", created.ParentEmail)
	assert.True(t, created.Enrolled)
	assert.Equal(t, "2015-04-20", created.BirthDate.Format("2006-01-02"))
	assert.Equal(t, login.ID, created.UserID)

	class, err := stdRepo.GetClass(context.Background(), s.class.ID)
	require.NoError(t, err)
	assert.Contains(t, class.StudentIDs, created.ID)

	runHTTPTests(t, []httpTest{
		{name: "me of the new login", path: "/api/students/me", token: getToken(t, login), wantData: marchallObj(t, created)},
		{name: "me of the other login", path: "/api/students/me", token: getToken(t, s.studentUsr), wantData: marchallObj(t, s.pupil)},
	})
}

func Test_studentApi_studentMe(t *testing.T) {
	setup(t)
	s := newSchool(t)

	runHTTPTests(t, []httpTest{
		{name: "student", path: "/api/students/me", token: getToken(t, s.studentUsr), wantData: marchallObj(t, s.pupil)},
		{name: "teacher forbidden", path: "/api/students/me", token: getToken(t, s.teacher), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	})
}

func Test_studentApi_studentDetail(t *testing.T) {
	setup(t)
	s := newSchool(t)
	adminToken := getToken(t, s.admin)
	path := "/api/students/" + s.pupil.ID

	runHTTPTests(t, []httpTest{
		{name: "unknown", path: "/api/students/nope", token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "teacher", path: path, token: getToken(t, s.teacher2), wantData: marchallObj(t, s.pupil)},
		{name: "self", path: path, token: getToken(t, s.studentUsr), wantData: marchallObj(t, s.pupil)},
		{name: "other student", path: path, token: getToken(t, s.studentUsr2), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{
			name:     "teacher cannot update",
			method:   http.MethodPut,
			path:     path,
			token:    getToken(t, s.teacher),
			body:     []byte(`{"first_name":"Youssef"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "bad contact",
			method:   http.MethodPut,
			path:     path,
			token:    adminToken,
			body:     []byte(`{"parent_contact":"abc"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"parent_contact":"parent_contact must be a valid phone number"}`),
		},
		{
			name:     "login of another student",
			method:   http.MethodPut,
			path:     path,
			token:    adminToken,
			body:     []byte(`{"user_id":"` + s.studentUsr2.ID + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"user_id":"this user is already linked to another student"}`),
		},
		{
			name:     "teacher login",
			method:   http.MethodPut,
			path:     path,
			token:    adminToken,
			body:     []byte(`{"user_id":"` + s.teacher.ID + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"user_id":"this user is not an active student"}`),
		},
	})

	t.Run("keep own login", func(t *testing.T) {
		rec := do(http.MethodPut, path, adminToken, []byte(`{"user_id":"`+s.studentUsr.ID+`"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated student.Student
		unmarshal(t, rec, &updated)
		assert.Equal(t, s.studentUsr.ID, updated.UserID)
	})

	t.Run("move to another class", func(t *testing.T) {
		rec := do(http.MethodPut, path, adminToken, []byte(`{"class_id":"`+s.class2.ID+`","payment_exempted":true}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated student.Student
		unmarshal(t, rec, &updated)
		assert.Equal(t, s.class2.ID, updated.ClassID)
		assert.True(t, updated.PaymentExempted)
		assert.Equal(t, s.pupil.FirstName, updated.FirstName)

		from, err := stdRepo.GetClass(context.Background(), s.class.ID)
		require.NoError(t, err)
		assert.NotContains(t, from.StudentIDs, s.pupil.ID)
		to, err := stdRepo.GetClass(context.Background(), s.class2.ID)
		require.NoError(t, err)
		assert.Contains(t, to.StudentIDs, s.pupil.ID)
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(http.MethodDelete, "/api/students/"+s.pupil2.ID, adminToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		_, err := stdRepo.GetStudent(context.Background(), s.pupil2.ID)
		assert.Equal(t, student.ErrNotFound, err)
		class, err := stdRepo.GetClass(context.Background(), s.class2.ID)
		require.NoError(t, err)
		assert.NotContains(t, class.StudentIDs, s.pupil2.ID)
	})
}

func studentsWorkbook(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func Test_studentApi_studentImport(t *testing.T) {
	setup(t)
	s := newSchool(t)
	adminToken := getToken(t, s.admin)

	t.Run("missing file", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/api/students/import", adminToken, nil, "", "", nil)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"file":"an xlsx file is required"}`, rec.Body.String())
	})

	t.Run("rows", func(t *testing.T) {
		content := studentsWorkbook(t,
			[]interface{}{"last_name", "first_name", "class_id", "parent_contact", "enrolled"},
			[]interface{}{"Rahmani", "Bilal", s.class.ID, "+393331112222", "yes"},
			[]interface{}{},
			[]interface{}{"Haddad", "", "", "", "no"},
			[]interface{}{"Nasser", "Leila", "", "+393334445555", "no"},
		)
		req, rec := newUploadRequest(t, "/api/students/import", adminToken, nil, "students.xlsx", report.ContentType, content)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res student.ImportResult
		unmarshal(t, rec, &res)
		assert.Equal(t, 2, res.Created)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, 4, res.Errors[0].Row) // sheet row, the blank row counts

		got, err := stdRepo.QueryStudents(context.Background(), &student.QueryFilter{Search: "Nasser"}, nil)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.False(t, got[0].Enrolled)

		class, err := stdRepo.GetClass(context.Background(), s.class.ID)
		require.NoError(t, err)
		assert.Len(t, class.StudentIDs, 2)
	})
}

func Test_studentApi_studentExport(t *testing.T) {
	setup(t)
	s := newSchool(t)

	rec := do(http.MethodGet, "/api/students/export", getToken(t, s.teacher))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(http.MethodGet, "/api/students/export", getToken(t, s.admin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "students.xlsx")

	rows, err := report.ReadStudents(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Amina", rows[0].FirstName)
	assert.Equal(t, s.class2.ID, rows[0].ClassID)
}
