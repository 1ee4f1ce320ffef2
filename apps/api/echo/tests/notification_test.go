package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/notification"
)

func Test_notificationApi(t *testing.T) {
	setup(t)
	s := newSchool(t)
	token := getToken(t, s.studentUsr)
	ctx := context.Background()

	for _, title := range []string{"Uno", "Due", "Tre"} {
		require.NoError(t, notifSvc.Notify(ctx, notification.NewNotification{
			Kind:  notification.KindHomeworkAssigned,
			Title: title,
		}, s.studentUsr.ID))
	}
	require.NoError(t, notifSvc.Notify(ctx, notification.NewNotification{
		Kind:  notification.KindHomeworkAssigned,
		Title: "Altro",
	}, s.studentUsr2.ID))

	var notifs []notification.Notification
	rec := do(http.MethodGet, "/api/notifications", token)
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshal(t, rec, &notifs)
	require.Len(t, notifs, 3)
	assert.Equal(t, "Tre", notifs[0].Title)
	for _, n := range notifs {
		assert.Equal(t, s.studentUsr.ID, n.UserID)
		assert.False(t, n.Read)
	}

	runHTTPTests(t, []httpTest{
		{name: "no token", path: "/api/notifications/unread-count", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "unread", path: "/api/notifications/unread-count", token: token, wantData: []byte(`{"unread":3}`)},
		{name: "read one", method: http.MethodPost, path: "/api/notifications/" + notifs[1].ID + "/read", token: token, wantCode: http.StatusNoContent},
		{
			name:     "read someone else's",
			method:   http.MethodPost,
			path:     "/api/notifications/" + notifs[0].ID + "/read",
			token:    getToken(t, s.studentUsr2),
			wantCode: http.StatusNotFound,
			wantData: []byte(`{"error":"notification not found"}`),
		},
		{name: "two left", path: "/api/notifications/unread-count", token: token, wantData: []byte(`{"unread":2}`)},
		{name: "limit", path: "/api/notifications?limit=1", token: token, wantData: marchallList(t, notifs[0])},
		{name: "read all", method: http.MethodPost, path: "/api/notifications/read-all", token: token, wantCode: http.StatusNoContent},
		{name: "none left", path: "/api/notifications/unread-count", token: token, wantData: []byte(`{"unread":0}`)},
		{name: "unread only", path: "/api/notifications?unread=true", token: token, wantData: []byte(`[]`)},
		{name: "others untouched", path: "/api/notifications/unread-count", token: getToken(t, s.studentUsr2), wantData: []byte(`{"unread":1}`)},
	})
}
