package notification

import "time"

type Kind string

const (
	KindHomeworkAssigned      Kind = "homework_assigned"
	KindHomeworkGraded        Kind = "homework_graded"
	KindSubstitutionRequested Kind = "substitution_requested"
	KindSubstitutionReviewed  Kind = "substitution_reviewed"
	KindSubstitutionAssigned  Kind = "substitution_assigned"
	KindMaterialUploaded      Kind = "material_uploaded"
	KindPaymentDigest         Kind = "payment_digest"

	DefaultLimit = 50
	MaxLimit     = 200
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewNotification is the content delivered to every recipient of a Notify call.
type NewNotification struct {
	Kind    Kind
	Title   string
	Message string
	Link    string
}

type ListFilter struct {
	UnreadOnly bool `query:"unread"`
	Limit      int  `query:"limit"`
}

func (lf *ListFilter) normalize() {
	if lf.Limit <= 0 {
		lf.Limit = DefaultLimit
	}
	if lf.Limit > MaxLimit {
		lf.Limit = MaxLimit
	}
}
