package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for payment data access. Implementations
// must provide at-most-one-winner semantics for UpdateInTx on the same record.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id uuid.UUID) (*Payment, error)
	List(ctx context.Context, familyID uuid.UUID, filter *Filter, pagination *Pagination) ([]*Payment, int64, error)

	// UpdateInTx runs decide against the freshest read of the record, inside
	// the same transaction that writes the resulting patch. A nil update from
	// decide means no-op: nothing is written and the current record is
	// returned. An error from decide rolls the transaction back.
	UpdateInTx(ctx context.Context, id uuid.UUID, decide func(p *Payment) (*Update, error)) (*Payment, error)

	// ListActionable returns non-terminal payments created before olderThan,
	// the only ones the timeout sweep may act on.
	ListActionable(ctx context.Context, olderThan time.Time) ([]*Payment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new payment repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Payment) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return mapStoreError(err)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Payment, error) {
	var p Payment
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, mapStoreError(err)
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, familyID uuid.UUID, filter *Filter, pagination *Pagination) ([]*Payment, int64, error) {
	var payments []*Payment
	var total int64

	query := r.db.WithContext(ctx).Model(&Payment{}).Where("family_id = ?", familyID)

	if filter != nil {
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.Provider != nil {
			query = query.Where("provider = ?", *filter.Provider)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, mapStoreError(err)
	}

	if pagination != nil {
		query = query.Offset(pagination.Offset()).Limit(pagination.PageSize)
	}

	if err := query.Order("created_at DESC").Find(&payments).Error; err != nil {
		return nil, 0, mapStoreError(err)
	}

	return payments, total, nil
}

func (r *repository) UpdateInTx(ctx context.Context, id uuid.UUID, decide func(p *Payment) (*Update, error)) (*Payment, error) {
	var result *Payment

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return mapStoreError(err)
		}

		update, err := decide(&p)
		if err != nil {
			return err
		}
		if update == nil {
			// Idempotent no-op, skip the write entirely.
			result = &p
			return nil
		}

		update.Apply(&p)
		if err := tx.Save(&p).Error; err != nil {
			return mapStoreError(err)
		}

		result = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *repository) ListActionable(ctx context.Context, olderThan time.Time) ([]*Payment, error) {
	var payments []*Payment
	err := r.db.WithContext(ctx).
		Where("status IN ?", []PaymentStatus{StatusInitiated, StatusPending, StatusProcessing}).
		Where("created_at < ?", olderThan).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, mapStoreError(err)
	}
	return payments, nil
}

// mapStoreError folds infrastructure failures into the module's error
// taxonomy. Serialization failures and deadlocks become retryable conflicts;
// everything else surfaces as the store being unavailable.
func mapStoreError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %v", ErrTransactionConflict, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
