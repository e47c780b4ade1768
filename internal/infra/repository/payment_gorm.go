package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentGormRepository struct {
	db *gorm.DB
}

func NewPaymentGormRepository(db *gorm.DB) *PaymentGormRepository {
	return &PaymentGormRepository{db: db}
}

func (r *PaymentGormRepository) Create(ctx context.Context, p model.Payment) (model.Payment, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

func (r *PaymentGormRepository) Save(ctx context.Context, p model.Payment) error {
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ?", p.ID).
		Select("payment_method_id", "amount", "transaction_reference", "proof_path", "status", "paid_at", "updated_at").
		Updates(&p)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PaymentGormRepository) FindByID(ctx context.Context, paymentID int64) (model.Payment, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", paymentID))
}

func (r *PaymentGormRepository) FindByIDForUpdate(ctx context.Context, paymentID int64) (model.Payment, error) {
	return r.first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", paymentID))
}

func (r *PaymentGormRepository) FindByProofPath(ctx context.Context, path string) (model.Payment, error) {
	return r.first(r.db.WithContext(ctx).Where("proof_path = ?", path))
}

func (r *PaymentGormRepository) FindLatestByOrderIDForUpdate(ctx context.Context, orderID int64) (model.Payment, error) {
	return r.first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		Order("id desc"))
}

func (r *PaymentGormRepository) first(q *gorm.DB) (model.Payment, error) {
	var p model.Payment
	err := q.First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

func (r *PaymentGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.Payment, error) {
	var items []model.Payment
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.Payment{}, err
	}
	return items, nil
}

func (r *PaymentGormRepository) ListAdmin(ctx context.Context, f repo.AdminPaymentListFilter) ([]model.Payment, int64, error) {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)

	q := r.db.WithContext(ctx).Model(&model.Payment{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OrderID != nil {
		q = q.Where("order_id = ?", *f.OrderID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Payment{}, 0, err
	}

	var items []model.Payment
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Payment{}, 0, err
	}
	return items, total, nil
}

type PaymentMethodGormRepository struct {
	db *gorm.DB
}

func NewPaymentMethodGormRepository(db *gorm.DB) *PaymentMethodGormRepository {
	return &PaymentMethodGormRepository{db: db}
}

func (r *PaymentMethodGormRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.PaymentMethod{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
