package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eaarma/tour-site-sub000/internal/domain"
)

// TourRepo is the catalog boundary: the reservation path only reads
// price/title/shop from it at booking time.
type TourRepo struct{ db *gorm.DB }

func NewTourRepo(db *gorm.DB) *TourRepo {
	return &TourRepo{db: db}
}

func (r *TourRepo) Create(ctx context.Context, t *domain.Tour) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TourRepo) TourByID(ctx context.Context, id string) (*domain.Tour, error) {
	var t domain.Tour
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTourNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ShopMemberRepo answers the single question the authorization middleware
// asks: does this user manage this shop.
type ShopMemberRepo struct{ db *gorm.DB }

func NewShopMemberRepo(db *gorm.DB) *ShopMemberRepo {
	return &ShopMemberRepo{db: db}
}

func (r *ShopMemberRepo) Add(ctx context.Context, m *domain.ShopMember) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *ShopMemberRepo) Member(ctx context.Context, shopID, userID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.ShopMember{}).
		Where("shop_id = ? AND user_id = ?", shopID, userID).
		Count(&n).Error
	return n > 0, err
}
