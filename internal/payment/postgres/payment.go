package postgres

import (
	"context"
	"time"

	"github.com/agromarket/payments/internal/core/datamodel/payment"
	"github.com/agromarket/payments/internal/core/datamodel/paymentmethod"
	paymentpkg "github.com/agromarket/payments/internal/payment"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

// UpdateStatus transitions the payment and stamps processed_at. The extra
// fields carry provider outcome columns such as transaction_id and fee.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, paymentID string, status string, fields map[string]interface{}) error {
	updates := map[string]interface{}{
		"status":       status,
		"processed_at": time.Now(),
		"updated_at":   time.Now(),
	}
	for k, v := range fields {
		updates[k] = v
	}

	return r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Where("payment_id = ?", paymentID).
		Updates(updates).Error
}

func (r *PaymentRepository) CreateRefund(ctx context.Context, ref *payment.Refund) error {
	return r.db.WithContext(ctx).Create(ref).Error
}

// SumRefunds returns the total already refunded against a payment, zero when
// no refunds exist.
func (r *PaymentRepository) SumRefunds(ctx context.Context, paymentID string) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&payment.Refund{}).
		Where("payment_id = ?", paymentID).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

func (r *PaymentRepository) GetMethod(ctx context.Context, id int64) (*paymentmethod.PaymentMethod, error) {
	var m paymentmethod.PaymentMethod
	err := r.db.WithContext(ctx).First(&m, id).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PaymentRepository) CountCompletedSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Where("user_id = ? AND status = ? AND created_at >= ?", userID, payment.StatusCompleted, since).
		Count(&count).Error
	return count, err
}

func (r *PaymentRepository) RecentPayments(ctx context.Context, userID int64, limit int) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

func (r *PaymentRepository) CountRefundsByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&payment.Refund{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
