package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/Zeta-Naidi/Muallim-1-sub002/apps/api/echo"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/attendance"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/dashboard"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/homework"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/lesson"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/material"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/notification"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/payment"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/substitution"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
	emailsvc "github.com/Zeta-Naidi/Muallim-1-sub002/services/email"
	"github.com/Zeta-Naidi/Muallim-1-sub002/storage/blob"
	dummydb "github.com/Zeta-Naidi/Muallim-1-sub002/storage/database/dummy"
	testutil "github.com/Zeta-Naidi/Muallim-1-sub002/tests"
)

const testPwd = "Sup3r$ecretPwd!"

var (
	app      *Server
	conf     *core.Config
	mailer   *emailsvc.ConsoleService
	notifSvc *notification.Service

	usrRepo user.Repository
	stdRepo student.Repository
	payRepo payment.Repository
	hwRepo  homework.Repository
	attRepo attendance.Repository
	lsnRepo lesson.Repository
	subRepo substitution.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

// setup wires a fresh server on top of an empty in-memory database.
func setup(t *testing.T) {
	t.Helper()
	conf = testutil.Config()
	logger := testutil.Logger(conf)
	validate, translator := testutil.Validator(logger)
	core.ParseEmailTemplates(conf, logger)

	db, err := dummydb.Open()
	require.NoError(t, err)
	usrRepo = dummydb.NewUserRepository(db)
	stdRepo = dummydb.NewStudentRepository(db)
	payRepo = dummydb.NewPaymentRepository(db)
	hwRepo = dummydb.NewHomeworkRepository(db)
	attRepo = dummydb.NewAttendanceRepository(db)
	lsnRepo = dummydb.NewLessonRepository(db)
	subRepo = dummydb.NewSubstitutionRepository(db)

	store, err := blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	mailer = emailsvc.NewConsoleServiceMock(conf, logger)
	notifSvc = notification.NewService(dummydb.NewNotificationRepository(db), logger, conf)

	usrSvc := user.NewService(usrRepo, mailer, conf)
	stdSvc := student.NewService(stdRepo, logger)
	paySvc := payment.NewService(payRepo, stdSvc)
	hwSvc := homework.NewService(hwRepo, stdSvc, notifSvc, logger)
	attSvc := attendance.NewService(attRepo, stdSvc, conf)
	lsnSvc := lesson.NewService(lsnRepo)
	matSvc := material.NewService(dummydb.NewMaterialRepository(db), store, stdSvc, notifSvc, logger)
	subSvc := substitution.NewService(subRepo, usrSvc, stdSvc, notifSvc, mailer, logger)

	app = NewServer(ServerDeps{
		Conf:            conf,
		Logger:          logger,
		Validate:        validate,
		Translator:      translator,
		UserSvc:         usrSvc,
		StudentSvc:      stdSvc,
		PaymentSvc:      paySvc,
		HomeworkSvc:     hwSvc,
		AttendanceSvc:   attSvc,
		LessonSvc:       lsnSvc,
		MaterialSvc:     matSvc,
		SubstitutionSvc: subSvc,
		NotificationSvc: notifSvc,
		DashboardSvc:    dashboard.NewService(stdSvc, paySvc, hwSvc, attSvc, lsnSvc, subSvc),
	})
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest posts a multipart form holding fields and, when name is set, a file.
func newUploadRequest(t *testing.T, path, token string, fields map[string]string, name, contentType string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if name != "" {
		h := make(textproto.MIMEHeader)
		h["Content-Disposition"] = []string{`form-data; name="file"; filename="` + name + `"`}
		h["Content-Type"] = []string{contentType}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, usr user.User) string {
	claims := app.GetUserClaims(usr)
	token, err := app.GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// runHTTPTests runs the table in order, the default method being GET and the default code 200.
func runHTTPTests(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// do sends a single request and returns the recorder.
func do(method, path, token string, body ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, body...)
	app.ServeHTTP(rec, req)
	return rec
}

// school fixture shared by the domain suites.
type school struct {
	admin, teacher, teacher2, studentUsr, studentUsr2 user.User
	class, class2                                     student.Class
	pupil, pupil2, sibling                            student.Student
}

func newSchool(t *testing.T) school {
	var s school
	s.admin = testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@muallim.test", testPwd, []string{user.RoleAdmin}, true)
	s.teacher = testutil.CreateUser(t, usrRepo, "Marco Rossi", "mrossi", "mrossi@muallim.test", testPwd, []string{user.RoleTeacher}, true)
	s.teacher2 = testutil.CreateUser(t, usrRepo, "Giulia Bianchi", "gbianchi", "gbianchi@muallim.test", testPwd, []string{user.RoleTeacher}, true)
	s.studentUsr = testutil.CreateUser(t, usrRepo, "Yusuf Amrani", "yamrani", "yamrani@muallim.test", testPwd, []string{user.RoleStudent}, true)
	s.studentUsr2 = testutil.CreateUser(t, usrRepo, "Sara Conti", "sconti", "sconti@muallim.test", testPwd, []string{user.RoleStudent}, true)

	s.class = testutil.CreateClass(t, stdRepo, "Arabo 1", s.teacher.ID)
	s.class2 = testutil.CreateClass(t, stdRepo, "Arabo 2", s.teacher2.ID)

	s.pupil = testutil.CreateStudent(t, stdRepo, student.Student{
		UserID: s.studentUsr.ID, ClassID: s.class.ID, FirstName: "Yusuf", LastName: "Amrani",
		ParentName: "Karim Amrani", ParentContact: "+393331234567", Enrolled: true,
	})
	s.sibling = testutil.CreateStudent(t, stdRepo, student.Student{
		ClassID: s.class2.ID, FirstName: "Amina", LastName: "Amrani",
		ParentName: "Karim Amrani", ParentContact: "+393331234567", Enrolled: true,
	})
	s.pupil2 = testutil.CreateStudent(t, stdRepo, student.Student{
		UserID: s.studentUsr2.ID, ClassID: s.class2.ID, FirstName: "Sara", LastName: "Conti",
		ParentName: "Luca Conti", ParentContact: "+393337654321", Enrolled: true,
	})

	var err error
	s.class, err = stdRepo.GetClass(context.Background(), s.class.ID)
	require.NoError(t, err)
	s.class2, err = stdRepo.GetClass(context.Background(), s.class2.ID)
	require.NoError(t, err)
	return s
}
