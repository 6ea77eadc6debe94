package client

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("client not found")
	ErrDuplicateNumber = errors.New("client number already exists")
)

type Service struct {
	DB *gorm.DB
}

// Create inserts a new client. A taken number is rejected and no row is
// created.
func (s *Service) Create(ctx context.Context, number int, passwordHash string) (uint64, error) {
	var c Client
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Client{}).Where("number = ?", number).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateNumber
		}
		c = Client{Number: number, PasswordHash: passwordHash}
		return tx.Create(&c).Error
	})
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

func (s *Service) ByID(ctx context.Context, id uint64) (*Client, error) {
	var c Client
	if err := s.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Service) ByNumber(ctx context.Context, number int) (*Client, error) {
	var c Client
	if err := s.DB.WithContext(ctx).Where("number = ?", number).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ByChat returns the client currently bound to a chat session, if any.
func (s *Service) ByChat(ctx context.Context, chatID int64) (*Client, error) {
	var c Client
	err := s.DB.WithContext(ctx).
		Where("chat_id = ? AND authorized = ?", chatID, true).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// UpdateNumber renumbers a client. Collisions with another client's number
// are rejected.
func (s *Service) UpdateNumber(ctx context.Context, id uint64, number int) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Client{}).
			Where("number = ? AND id <> ?", number, id).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateNumber
		}
		return tx.Model(&Client{}).Where("id = ?", id).Update("number", number).Error
	})
}

func (s *Service) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	return s.DB.WithContext(ctx).Model(&Client{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}

// Authorize marks the client logged in and binds the chat session. A
// re-login simply rebinds.
func (s *Service) Authorize(ctx context.Context, id uint64, chatID int64) error {
	return s.DB.WithContext(ctx).Model(&Client{}).
		Where("id = ?", id).
		Updates(map[string]any{"authorized": true, "chat_id": chatID}).Error
}

// Unauthorize clears the login flag and the session binding.
func (s *Service) Unauthorize(ctx context.Context, id uint64) error {
	return s.DB.WithContext(ctx).Model(&Client{}).
		Where("id = ?", id).
		Updates(map[string]any{"authorized": false, "chat_id": nil}).Error
}

// Authorized lists every client with a live session binding, for the
// notification pass.
func (s *Service) Authorized(ctx context.Context) ([]Client, error) {
	var out []Client
	err := s.DB.WithContext(ctx).
		Where("authorized = ? AND chat_id IS NOT NULL", true).
		Find(&out).Error
	return out, err
}

// Empty reports whether no clients exist yet (first run, triggers the
// initial import).
func (s *Service) Empty(ctx context.Context) (bool, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&Client{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

func (s *Service) Stats(ctx context.Context, id uint64) (*Stats, error) {
	var st Stats
	db := s.DB.WithContext(ctx)
	if err := db.Table("platforms").Where("client_id = ?", id).Count(&st.Platforms).Error; err != nil {
		return nil, err
	}
	if err := db.Table("reviews").Where("client_id = ?", id).Count(&st.TotalReviews).Error; err != nil {
		return nil, err
	}
	if err := db.Table("reviews").Where("client_id = ? AND status = ?", id, "approved").Count(&st.ApprovedReviews).Error; err != nil {
		return nil, err
	}
	if err := db.Table("reviews").Where("client_id = ? AND status = ?", id, "new").Count(&st.NewReviews).Error; err != nil {
		return nil, err
	}
	return &st, nil
}
