package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/material"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/notification"
)

var worksheet = []byte("%PDF-1.4 alif ba ta")

func uploadMaterial(t *testing.T, token, classID, title string) material.Material {
	t.Helper()
	req, rec := newUploadRequest(t, "/api/materials", token,
		map[string]string{"class_id": classID, "title": title, "description": "da stampare"},
		"scheda alfabeto.pdf", "application/pdf", worksheet)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m material.Material
	unmarshal(t, rec, &m)
	return m
}

func Test_materialApi_upload(t *testing.T) {
	setup(t)
	s := newSchool(t)
	token := getToken(t, s.teacher)

	tests := []struct {
		name     string
		token    string
		fields   map[string]string
		file     string
		wantCode int
		wantData string
	}{
		{
			name:     "student forbidden",
			token:    getToken(t, s.studentUsr),
			fields:   map[string]string{"class_id": s.class.ID, "title": "Alfabeto"},
			file:     "a.pdf",
			wantCode: http.StatusForbidden,
			wantData: `{"error":"permission denied"}`,
		},
		{
			name:     "validation",
			token:    token,
			fields:   map[string]string{"title": " "},
			file:     "a.pdf",
			wantCode: http.StatusBadRequest,
			wantData: `{"class_id":"this field is required","title":"this field is required"}`,
		},
		{
			name:     "missing file",
			token:    token,
			fields:   map[string]string{"class_id": s.class.ID, "title": "Alfabeto"},
			wantCode: http.StatusBadRequest,
			wantData: `{"file":"a file is required"}`,
		},
		{
			name:     "unknown class",
			token:    token,
			fields:   map[string]string{"class_id": "nope", "title": "Alfabeto"},
			file:     "a.pdf",
			wantCode: http.StatusBadRequest,
			wantData: `{"class_id":"class not found"}`,
		},
		{
			name:     "class of another teacher",
			token:    token,
			fields:   map[string]string{"class_id": s.class2.ID, "title": "Alfabeto"},
			file:     "a.pdf",
			wantCode: http.StatusForbidden,
			wantData: `{"error":"permission denied"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newUploadRequest(t, "/api/materials", tt.token, tt.fields, tt.file, "application/pdf", worksheet)
			app.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantData, rec.Body.String())
		})
	}

	m := uploadMaterial(t, token, s.class.ID, "Alfabeto")
	assert.Equal(t, "scheda_alfabeto.pdf", m.FileName)
	assert.Equal(t, "application/pdf", m.ContentType)
	assert.Equal(t, int64(len(worksheet)), m.Size)
	assert.Equal(t, s.teacher.ID, m.TeacherID)
	assert.Equal(t, "da stampare", m.Description)

	notifs, err := notifSvc.List(context.Background(), s.studentUsr.ID, notification.ListFilter{})
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, notification.KindMaterialUploaded, notifs[0].Kind)
	assert.Equal(t, "New material: Alfabeto", notifs[0].Title)
	assert.Equal(t, "/materials/"+m.ID, notifs[0].Link)
}

func Test_materialApi_access(t *testing.T) {
	setup(t)
	s := newSchool(t)
	token := getToken(t, s.teacher)
	m := uploadMaterial(t, token, s.class.ID, "Alfabeto")
	m2 := uploadMaterial(t, getToken(t, s.teacher2), s.class2.ID, "Surat al-Fatiha")

	var materials []material.Material
	rec := do(http.MethodGet, "/api/materials", getToken(t, s.admin))
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshal(t, rec, &materials)
	assert.Len(t, materials, 2)

	rec = do(http.MethodGet, "/api/materials?class_id="+s.class2.ID, token)
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshal(t, rec, &materials)
	require.Len(t, materials, 1)
	assert.Equal(t, m2.ID, materials[0].ID)

	// the class of the student wins over the filter
	rec = do(http.MethodGet, "/api/materials?class_id="+s.class2.ID, getToken(t, s.studentUsr))
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshal(t, rec, &materials)
	require.Len(t, materials, 1)
	assert.Equal(t, m.ID, materials[0].ID)

	runHTTPTests(t, []httpTest{
		{name: "own class", path: "/api/materials/" + m.ID, token: getToken(t, s.studentUsr), wantData: marchallObj(t, m)},
		{name: "other class", path: "/api/materials/" + m.ID, token: getToken(t, s.studentUsr2), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "other class download", path: "/api/materials/" + m.ID + "/download", token: getToken(t, s.studentUsr2), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "unknown", path: "/api/materials/nope", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	})

	t.Run("download", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/materials/"+m.ID+"/download", getToken(t, s.studentUsr))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="scheda_alfabeto.pdf"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, worksheet, rec.Body.Bytes())
	})
}

func Test_materialApi_delete(t *testing.T) {
	setup(t)
	s := newSchool(t)
	token := getToken(t, s.teacher)
	m := uploadMaterial(t, token, s.class.ID, "Alfabeto")
	path := "/api/materials/" + m.ID

	runHTTPTests(t, []httpTest{
		{name: "student", method: http.MethodDelete, path: path, token: getToken(t, s.studentUsr), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "another teacher", method: http.MethodDelete, path: path, token: getToken(t, s.teacher2), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "author", method: http.MethodDelete, path: path, token: token, wantCode: http.StatusNoContent},
		{name: "gone", path: path + "/download", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	})
}
