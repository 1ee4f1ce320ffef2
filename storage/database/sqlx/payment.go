package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/payment"
)

const paymentColumns = "id, parent_contact, amount, date, notes, recorded_by, created_at"

type paymentRow struct {
	ID            string      `db:"id"`
	ParentContact string      `db:"parent_contact"`
	Amount        float64     `db:"amount"`
	Date          time.Time   `db:"date"`
	Notes         string      `db:"notes"`
	RecordedBy    null.String `db:"recorded_by"`
	CreatedAt     time.Time   `db:"created_at"`
}

func toPaymentRow(rec payment.Record) paymentRow {
	return paymentRow{
		ID:            rec.ID,
		ParentContact: rec.ParentContact,
		Amount:        rec.Amount,
		Date:          dateOnly(rec.Date),
		Notes:         rec.Notes,
		RecordedBy:    null.NewString(rec.RecordedBy, validID(rec.RecordedBy)),
		CreatedAt:     rec.CreatedAt.UTC(),
	}
}

func (row paymentRow) record() payment.Record {
	return payment.Record{
		ID:            row.ID,
		ParentContact: row.ParentContact,
		Amount:        row.Amount,
		Date:          dateOnly(row.Date),
		Notes:         row.Notes,
		RecordedBy:    row.RecordedBy.String,
		CreatedAt:     row.CreatedAt.UTC(),
	}
}

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreateRecord(ctx context.Context, rec payment.Record) (payment.Record, error) {
	rec.ID = newID()
	row := toPaymentRow(rec)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO payment_records (`+paymentColumns+`)
		VALUES (:id, :parent_contact, :amount, :date, :notes, :recorded_by, :created_at)`,
		row)
	if err != nil {
		return payment.Record{}, errors.Wrap(err, "inserting payment record")
	}
	return row.record(), nil
}

func (repo *paymentRepository) GetRecord(ctx context.Context, id string) (payment.Record, error) {
	if !validID(id) {
		return payment.Record{}, payment.ErrNotFound
	}
	var row paymentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+paymentColumns+" FROM payment_records WHERE id = $1", id); err != nil {
		return payment.Record{}, trapNoRowsErr(err, payment.ErrNotFound, "finding payment record")
	}
	return row.record(), nil
}

func (repo *paymentRepository) QueryRecords(ctx context.Context, filter *payment.QueryFilter) ([]payment.Record, error) {
	var w where
	if filter != nil {
		if filter.ParentContact != "" {
			w.and("TRIM(parent_contact) = ?", filter.ParentContact)
		}
		if !filter.From.IsZero() {
			w.and("date >= ?", dateOnly(filter.From))
		}
		if !filter.To.IsZero() {
			w.and("date <= ?", dateOnly(filter.To))
		}
	}
	var rows []paymentRow
	err := selectWhere(ctx, repo.db, &rows, "SELECT "+paymentColumns+" FROM payment_records", &w,
		" ORDER BY date DESC, created_at DESC")
	if err != nil {
		return nil, errors.Wrap(err, "querying payment records")
	}
	records := make([]payment.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

func (repo *paymentRepository) UpdateRecord(ctx context.Context, rec payment.Record) (payment.Record, error) {
	row := toPaymentRow(rec)
	res, err := repo.db.NamedExecContext(ctx,
		"UPDATE payment_records SET amount = :amount, date = :date, notes = :notes WHERE id = :id", row)
	if err != nil {
		return payment.Record{}, errors.Wrap(err, "updating payment record")
	}
	if err = checkAffected(res, payment.ErrNotFound); err != nil {
		return payment.Record{}, err
	}
	return row.record(), nil
}

func (repo *paymentRepository) DeleteRecord(ctx context.Context, id string) error {
	if !validID(id) {
		return payment.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM payment_records WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting payment record")
	}
	return checkAffected(res, payment.ErrNotFound)
}
