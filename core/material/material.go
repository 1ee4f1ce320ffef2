package material

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/notification"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
)

const MaxFileSize = 20 << 20 // 20 MiB

var (
	// errors
	ErrNotFound     = errors.New("material not found")
	ErrBlobNotFound = errors.New("file not found")
)

// Material is a file shared by a teacher with a class.
type Material struct {
	ID          string    `json:"id"`
	ClassID     string    `json:"class_id"`
	TeacherID   string    `json:"teacher_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	StorageKey  string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type NewMaterial struct {
	ClassID     string `form:"class_id" validate:"required"`
	Title       string `form:"title" validate:"required,max=200"`
	Description string `form:"description" validate:"max=2000"`
}

func (nm *NewMaterial) Validate(validate *validator.Validate) error {
	nm.ClassID = core.CleanString(nm.ClassID)
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	return validate.Struct(nm)
}

// File is the uploaded content of a Material.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

type QueryFilter struct {
	ClassID   string `query:"class_id"`
	TeacherID string `query:"teacher_id"`
}

type (
	Repository interface {
		CreateMaterial(ctx context.Context, m Material) (Material, error)
		GetMaterial(ctx context.Context, id string) (Material, error)
		// QueryMaterials returns the matching materials, most recent first.
		QueryMaterials(ctx context.Context, filter *QueryFilter) ([]Material, error)
		DeleteMaterial(ctx context.Context, id string) error
	}

	// Store holds the content of the materials.
	Store interface {
		Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
		// Get returns ErrBlobNotFound when nothing is stored under key.
		Get(ctx context.Context, key string) (io.ReadCloser, error)
		Delete(ctx context.Context, key string) error
	}

	// URLSigner is implemented by the stores that can hand out temporary download links.
	URLSigner interface {
		SignURL(ctx context.Context, key string) (string, error)
	}

	StudentSource interface {
		ClassStudents(ctx context.Context, classID string) ([]student.Student, error)
	}

	Notifier interface {
		Notify(ctx context.Context, nn notification.NewNotification, userIDs ...string) error
	}

	Service struct {
		repo     Repository
		store    Store
		students StudentSource
		notifier Notifier
		logger   core.Logger
	}
)

func NewService(repo Repository, store Store, students StudentSource, notifier Notifier, logger core.Logger) *Service {
	return &Service{repo: repo, store: store, students: students, notifier: notifier, logger: logger}
}

// cleanFileName keeps the base name of the file, without spaces.
func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(core.CleanString(name), "\\", "/"))
	name = strings.Join(strings.Fields(name), "_")
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}

// StorageKey is the key the content of a material uploaded to the class is stored under.
func StorageKey(classID, fileName string) string {
	return fmt.Sprintf("materials/%s/%s-%s", classID, uuid.NewString(), cleanFileName(fileName))
}

// Upload stores the file then saves the material; the file is removed again when saving fails.
func (svc *Service) Upload(ctx context.Context, nm NewMaterial, f File, teacherID string) (Material, error) {
	if f.Size > MaxFileSize {
		return Material{}, core.NewFieldValidationError("file", fmt.Sprintf("the file must be at most %d MiB", MaxFileSize>>20))
	}
	if f.ContentType == "" {
		f.ContentType = "application/octet-stream"
	}
	m := Material{
		ClassID:     nm.ClassID,
		TeacherID:   teacherID,
		Title:       nm.Title,
		Description: nm.Description,
		FileName:    cleanFileName(f.Name),
		ContentType: f.ContentType,
		Size:        f.Size,
		StorageKey:  StorageKey(nm.ClassID, f.Name),
		CreatedAt:   time.Now().UTC(),
	}

	if err := svc.store.Put(ctx, m.StorageKey, f.Content, f.Size, f.ContentType); err != nil {
		return Material{}, errors.Wrap(err, "storing file")
	}
	key := m.StorageKey
	m, err := svc.repo.CreateMaterial(ctx, m)
	if err != nil {
		if delErr := svc.store.Delete(ctx, key); delErr != nil {
			svc.logger.Warn(fmt.Sprintf("removing orphan file %s: %v", key, delErr), delErr)
		}
		return Material{}, errors.Wrap(err, "saving material")
	}

	svc.notifyClass(ctx, m)
	return m, nil
}

func (svc *Service) notifyClass(ctx context.Context, m Material) {
	students, err := svc.students.ClassStudents(ctx, m.ClassID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("querying students of class %s: %v", m.ClassID, err), err)
		return
	}
	var userIDs []string
	for _, s := range students {
		if s.UserID != "" {
			userIDs = append(userIDs, s.UserID)
		}
	}
	if len(userIDs) == 0 {
		return
	}
	nn := notification.NewNotification{
		Kind:    notification.KindMaterialUploaded,
		Title:   "New material: " + m.Title,
		Message: m.FileName,
		Link:    "/materials/" + m.ID,
	}
	if err := svc.notifier.Notify(ctx, nn, userIDs...); err != nil {
		svc.logger.Warn(fmt.Sprintf("sending %s notification: %v", nn.Kind, err), err)
	}
}

func (svc *Service) Get(ctx context.Context, id string) (Material, error) {
	return svc.repo.GetMaterial(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Material, error) {
	return svc.repo.QueryMaterials(ctx, filter)
}

// DownloadURL returns a temporary link to the content of the material, when the store supports it.
func (svc *Service) DownloadURL(ctx context.Context, m Material) (string, bool, error) {
	signer, ok := svc.store.(URLSigner)
	if !ok {
		return "", false, nil
	}
	url, err := signer.SignURL(ctx, m.StorageKey)
	if err != nil {
		return "", false, errors.Wrap(err, "signing download url")
	}
	return url, true, nil
}

// Open returns the content of the material. The caller must close it.
func (svc *Service) Open(ctx context.Context, m Material) (io.ReadCloser, error) {
	return svc.store.Get(ctx, m.StorageKey)
}

// Delete removes the material then its file. A file that could not be removed is only logged.
func (svc *Service) Delete(ctx context.Context, m Material) error {
	if err := svc.repo.DeleteMaterial(ctx, m.ID); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	if err := svc.store.Delete(ctx, m.StorageKey); err != nil && errors.Cause(err) != ErrBlobNotFound {
		svc.logger.Warn(fmt.Sprintf("removing file %s: %v", m.StorageKey, err), err)
	}
	return nil
}
