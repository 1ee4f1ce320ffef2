package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/lesson"
)

func createLesson(t *testing.T, token, classID, date, topic string) lesson.Lesson {
	t.Helper()
	rec := do(http.MethodPost, "/api/lessons", token,
		[]byte(`{"class_id":"`+classID+`","date":"`+date+`","topic":"`+topic+`"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var l lesson.Lesson
	unmarshal(t, rec, &l)
	return l
}

func Test_lessonApi_lessonCreate(t *testing.T) {
	setup(t)
	s := newSchool(t)
	token := getToken(t, s.teacher)

	runHTTPTests(t, []httpTest{
		{
			name:     "student forbidden",
			method:   http.MethodPost,
			path:     "/api/lessons",
			token:    getToken(t, s.studentUsr),
			body:     []byte(`{"class_id":"` + s.class.ID + `","date":"2024-03-02","topic":"Alif"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "validation",
			method:   http.MethodPost,
			path:     "/api/lessons",
			token:    token,
			body:     []byte(`{"date":"March 2nd"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"class_id":"this field is required",
				"date":"date must be a date formatted as YYYY-MM-DD",
				"topic":"this field is required"
			}`),
		},
		{
			name:     "unknown class",
			method:   http.MethodPost,
			path:     "/api/lessons",
			token:    token,
			body:     []byte(`{"class_id":"nope","date":"2024-03-02","topic":"Alif"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"class_id":"class not found"}`),
		},
		{
			name:     "class of another teacher",
			method:   http.MethodPost,
			path:     "/api/lessons",
			token:    token,
			body:     []byte(`{"class_id":"` + s.class2.ID + `","date":"2024-03-02","topic":"Alif"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
	})

	l := createLesson(t, token, s.class.ID, "2024-03-02", "Alif, Ba, Ta")
	assert.Equal(t, s.teacher.ID, l.TeacherID)
	assert.Equal(t, "2024-03-02", l.Date.Format("2006-01-02"))

	runHTTPTests(t, []httpTest{
		{name: "detail", path: "/api/lessons/" + l.ID, token: getToken(t, s.teacher2), wantData: marchallObj(t, l)},
		{name: "unknown", path: "/api/lessons/nope", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{
			name:     "update by another teacher",
			method:   http.MethodPut,
			path:     "/api/lessons/" + l.ID,
			token:    getToken(t, s.teacher2),
			body:     []byte(`{"topic":"Tha"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "delete by another teacher",
			method:   http.MethodDelete,
			path:     "/api/lessons/" + l.ID,
			token:    getToken(t, s.teacher2),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
	})

	rec := do(http.MethodPut, "/api/lessons/"+l.ID, token, []byte(`{"topic":"Alif, Ba, Ta, Tha","notes":"ripasso"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated lesson.Lesson
	unmarshal(t, rec, &updated)
	assert.Equal(t, "Alif, Ba, Ta, Tha", updated.Topic)
	assert.Equal(t, "ripasso", updated.Notes)
	assert.Equal(t, l.Date, updated.Date)

	rec = do(http.MethodDelete, "/api/lessons/"+l.ID, getToken(t, s.admin))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(http.MethodGet, "/api/lessons/"+l.ID, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_lessonApi_lessonQuery(t *testing.T) {
	setup(t)
	s := newSchool(t)
	token := getToken(t, s.teacher)
	token2 := getToken(t, s.teacher2)

	feb := createLesson(t, token, s.class.ID, "2024-02-24", "Alif")
	mar1 := createLesson(t, token, s.class.ID, "2024-03-02", "Ba")
	mar2 := createLesson(t, token, s.class.ID, "2024-03-09", "Ta")
	other := createLesson(t, token2, s.class2.ID, "2024-03-09", "Surat al-Ikhlas")

	runHTTPTests(t, []httpTest{
		{name: "by class, newest first", path: "/api/lessons?class_id=" + s.class.ID, token: token, wantData: marchallList(t, mar2, mar1, feb)},
		{name: "by month", path: "/api/lessons?class_id=" + s.class.ID + "&year=2024&month=3", token: token, wantData: marchallList(t, mar2, mar1)},
		{name: "by teacher", path: "/api/lessons?teacher_id=" + s.teacher2.ID, token: token, wantData: marchallList(t, other)},
		{name: "from", path: "/api/lessons?from=2024-03-09", token: token, wantData: marchallList(t, other, mar2)},
		{name: "limit", path: "/api/lessons?class_id=" + s.class.ID + "&limit=1", token: token, wantData: marchallList(t, mar2)},
		{name: "invalid month", path: "/api/lessons?month=0", token: token, wantCode: http.StatusBadRequest, wantData: []byte(`{"month":"invalid month"}`)},
	})
}
