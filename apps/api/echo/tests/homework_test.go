package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/homework"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/notification"
)

func createHomework(t *testing.T, token, classID, title, due string) homework.Homework {
	t.Helper()
	rec := do(http.MethodPost, "/api/homework", token,
		[]byte(`{"class_id":"`+classID+`","title":"`+title+`","due_date":"`+due+`"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var hw homework.Homework
	unmarshal(t, rec, &hw)
	return hw
}

func submitHomework(t *testing.T, token, hwID, content string) homework.Submission {
	t.Helper()
	rec := do(http.MethodPost, "/api/homework/"+hwID+"/submissions", token, []byte(`{"content":"`+content+`"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub homework.Submission
	unmarshal(t, rec, &sub)
	return sub
}

func Test_homeworkApi_homeworkCreate(t *testing.T) {
	setup(t)
	s := newSchool(t)
	teacherToken := getToken(t, s.teacher)

	runHTTPTests(t, []httpTest{
		{
			name:     "student forbidden",
			method:   http.MethodPost,
			path:     "/api/homework",
			token:    getToken(t, s.studentUsr),
			body:     []byte(`{"class_id":"` + s.class.ID + `","title":"Alif Ba","due_date":"2024-03-09"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "validation",
			method:   http.MethodPost,
			path:     "/api/homework",
			token:    teacherToken,
			body:     []byte(`{"class_id":"` + s.class.ID + `","due_date":"09/03/2024"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"title":"this field is required","due_date":"due_date must be a date formatted as YYYY-MM-DD"}`),
		},
		{
			name:     "class not found",
			method:   http.MethodPost,
			path:     "/api/homework",
			token:    teacherToken,
			body:     []byte(`{"class_id":"3f8a1d1e-5b1c-4f6a-9e2b-7c1d2e3f4a5b","title":"Alif Ba","due_date":"2024-03-09"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"class_id":"class not found"}`),
		},
		{
			name:     "class of another teacher",
			method:   http.MethodPost,
			path:     "/api/homework",
			token:    teacherToken,
			body:     []byte(`{"class_id":"` + s.class2.ID + `","title":"Alif Ba","due_date":"2024-03-09"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
	})

	hw := createHomework(t, teacherToken, s.class.ID, "Alif Ba", "2024-03-09")
	assert.Equal(t, s.teacher.ID, hw.TeacherID)
	assert.Equal(t, "2024-03-09", hw.DueDate.Format("2006-01-02"))

	notifs, err := notifSvc.List(context.Background(), s.studentUsr.ID, notification.ListFilter{})
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, notification.KindHomeworkAssigned, notifs[0].Kind)
	assert.Equal(t, "New homework: Alif Ba", notifs[0].Title)
	assert.Equal(t, "/homework/"+hw.ID, notifs[0].Link)

	other, err := notifSvc.List(context.Background(), s.studentUsr2.ID, notification.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)

	t.Run("update", func(t *testing.T) {
		rec := do(http.MethodPut, "/api/homework/"+hw.ID, getToken(t, s.teacher2), []byte(`{"title":"Nope"}`))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = do(http.MethodPut, "/api/homework/"+hw.ID, teacherToken, []byte(`{"title":"Alif Ba Ta","due_date":"2024-03-10"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated homework.Homework
		unmarshal(t, rec, &updated)
		assert.Equal(t, "Alif Ba Ta", updated.Title)
		assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), updated.DueDate)
	})
}

func Test_homeworkApi_homeworkQuery(t *testing.T) {
	setup(t)
	s := newSchool(t)
	hw1 := createHomework(t, getToken(t, s.teacher), s.class.ID, "Alif Ba", "2024-03-09")
	hw2 := createHomework(t, getToken(t, s.teacher2), s.class2.ID, "Surat al-Fatiha", "2024-03-16")

	var hws []homework.Homework
	rec := do(http.MethodGet, "/api/homework", getToken(t, s.admin))
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshal(t, rec, &hws)
	assert.Len(t, hws, 2)

	rec = do(http.MethodGet, "/api/homework?due_from=2024-03-10", getToken(t, s.admin))
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshal(t, rec, &hws)
	require.Len(t, hws, 1)
	assert.Equal(t, hw2.ID, hws[0].ID)

	// students only see the homework of their class, whatever the filter
	rec = do(http.MethodGet, "/api/homework?class_id="+s.class2.ID, getToken(t, s.studentUsr))
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshal(t, rec, &hws)
	require.Len(t, hws, 1)
	assert.Equal(t, hw1.ID, hws[0].ID)

	runHTTPTests(t, []httpTest{
		{name: "own class", path: "/api/homework/" + hw1.ID, token: getToken(t, s.studentUsr), wantData: marchallObj(t, hw1)},
		{name: "other class", path: "/api/homework/" + hw2.ID, token: getToken(t, s.studentUsr), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "invalid due date", path: "/api/homework?due_to=soon", token: getToken(t, s.teacher), wantCode: http.StatusBadRequest, wantData: []byte(`{"due_to":"invalid date"}`)},
	})
}

func Test_homeworkApi_submissions(t *testing.T) {
	setup(t)
	s := newSchool(t)
	teacherToken := getToken(t, s.teacher)
	studentToken := getToken(t, s.studentUsr)
	hw := createHomework(t, teacherToken, s.class.ID, "Alif Ba", "2024-03-09")

	runHTTPTests(t, []httpTest{
		{
			name:     "teacher cannot submit",
			method:   http.MethodPost,
			path:     "/api/homework/" + hw.ID + "/submissions",
			token:    teacherToken,
			body:     []byte(`{"content":"done"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "homework of another class",
			method:   http.MethodPost,
			path:     "/api/homework/" + hw.ID + "/submissions",
			token:    getToken(t, s.studentUsr2),
			body:     []byte(`{"content":"done"}`),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
		{
			name:     "content required",
			method:   http.MethodPost,
			path:     "/api/homework/" + hw.ID + "/submissions",
			token:    studentToken,
			body:     []byte(`{"content":" "}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"content":"this field is required"}`),
		},
	})

	first := submitHomework(t, studentToken, hw.ID, "first draft")
	assert.Equal(t, homework.StatusSubmitted, first.Status)
	assert.Equal(t, s.pupil.ID, first.StudentID)
	assert.Nil(t, first.Grade)

	// submitting again replaces the pending submission
	sub := submitHomework(t, studentToken, hw.ID, "final version")
	assert.Equal(t, first.ID, sub.ID)
	assert.Equal(t, "final version", sub.Content)

	var pending []homework.Submission
	rec := do(http.MethodGet, "/api/submissions/pending", teacherToken)
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshal(t, rec, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, sub.ID, pending[0].ID)

	rec = do(http.MethodGet, "/api/submissions/pending", getToken(t, s.teacher2))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	gradePath := "/api/submissions/" + sub.ID + "/grade"
	runHTTPTests(t, []httpTest{
		{name: "other student", path: "/api/submissions/" + sub.ID, token: getToken(t, s.studentUsr2), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "own submission", path: "/api/submissions/" + sub.ID, token: studentToken, wantData: marchallObj(t, sub)},
		{
			name:     "grade by another teacher",
			method:   http.MethodPut,
			path:     gradePath,
			token:    getToken(t, s.teacher2),
			body:     []byte(`{"grade":8}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "grade out of range",
			method:   http.MethodPut,
			path:     gradePath,
			token:    teacherToken,
			body:     []byte(`{"grade":11}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"grade":"grade must be 10 or less"}`),
		},
	})

	rec = do(http.MethodPut, gradePath, teacherToken, []byte(`{"grade":8.456,"feedback":"Bravo"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var graded homework.Submission
	unmarshal(t, rec, &graded)
	assert.Equal(t, homework.StatusGraded, graded.Status)
	require.NotNil(t, graded.Grade)
	assert.Equal(t, 8.46, *graded.Grade)
	assert.Equal(t, s.teacher.ID, graded.GradedBy)
	assert.NotNil(t, graded.GradedAt)

	rec = do(http.MethodPost, "/api/homework/"+hw.ID+"/submissions", studentToken, []byte(`{"content":"again"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"the submission has already been graded"}`, rec.Body.String())

	notifs, err := notifSvc.List(context.Background(), s.studentUsr.ID, notification.ListFilter{})
	require.NoError(t, err)
	require.Len(t, notifs, 2)
	assert.Equal(t, notification.KindHomeworkGraded, notifs[0].Kind)
	assert.Equal(t, "Homework graded: Alif Ba", notifs[0].Title)

	var subs []homework.Submission
	rec = do(http.MethodGet, "/api/homework/"+hw.ID+"/submissions", teacherToken)
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshal(t, rec, &subs)
	assert.Len(t, subs, 1)

	rec = do(http.MethodGet, "/api/submissions", getToken(t, s.studentUsr2))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func Test_homeworkApi_gradeStats(t *testing.T) {
	setup(t)
	s := newSchool(t)
	teacherToken := getToken(t, s.teacher)
	studentToken := getToken(t, s.studentUsr)

	for i, g := range []string{"4", "5", "6", "8", "9", "10"} {
		hw := createHomework(t, teacherToken, s.class.ID, "Esercizio", "2024-03-09")
		sub := submitHomework(t, studentToken, hw.ID, "done")
		// grades are ordered by grading time
		time.Sleep(time.Millisecond * time.Duration(1+i%2))
		rec := do(http.MethodPut, "/api/submissions/"+sub.ID+"/grade", teacherToken, []byte(`{"grade":`+g+`}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	runHTTPTests(t, []httpTest{
		{
			name:     "teacher",
			path:     "/api/students/" + s.pupil.ID + "/grades",
			token:    teacherToken,
			wantData: []byte(`{"count":6,"average":7,"highest":10,"lowest":4,"trend":"up"}`),
		},
		{
			name:     "self",
			path:     "/api/students/" + s.pupil.ID + "/grades",
			token:    studentToken,
			wantData: []byte(`{"count":6,"average":7,"highest":10,"lowest":4,"trend":"up"}`),
		},
		{
			name:     "no grades",
			path:     "/api/students/" + s.pupil2.ID + "/grades",
			token:    teacherToken,
			wantData: []byte(`{"count":0,"average":0,"highest":0,"lowest":0,"trend":"stable"}`),
		},
	})
}
