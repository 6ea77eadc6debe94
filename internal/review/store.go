package review

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("review not found")

// Store is the relational side of the sync pair. Every method is a short,
// independently committed unit; concurrent writers to the same row race on
// last-write-wins terms.
type Store struct {
	DB *gorm.DB
}

// EnsurePlatform returns the platform for (client, number), creating it with
// the given URL when absent. Whichever store references a platform first wins
// its creation; the number never changes afterwards.
func (s *Store) EnsurePlatform(ctx context.Context, clientID uint64, number int, url *string) (*Platform, error) {
	var p Platform
	err := s.DB.WithContext(ctx).
		Where("client_id = ? AND number = ?", clientID, number).
		First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	p = Platform{ClientID: clientID, Number: number, URL: url}
	if err := s.DB.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) PlatformByNumber(ctx context.Context, clientID uint64, number int) (*Platform, error) {
	var p Platform
	err := s.DB.WithContext(ctx).
		Where("client_id = ? AND number = ?", clientID, number).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// PlatformNumber resolves a platform id back to its per-client number.
func (s *Store) PlatformNumber(ctx context.Context, id uint64) (int, error) {
	var p Platform
	if err := s.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return p.Number, nil
}

// PlatformNewCount is one row of the platform listing shown to the user.
type PlatformNewCount struct {
	PlatformID uint64  `json:"-"`
	Number     int     `json:"number"`
	URL        *string `json:"url"`
	NewCount   int64   `json:"new_count"`
}

// PlatformsWithNewCounts lists a client's platforms in number order with the
// count of still-new reviews on each.
func (s *Store) PlatformsWithNewCounts(ctx context.Context, clientID uint64) ([]PlatformNewCount, error) {
	var out []PlatformNewCount
	err := s.DB.WithContext(ctx).
		Table("platforms p").
		Select(`p.id as platform_id, p.number, p.url, count(r.id) as new_count`).
		Joins(`left join reviews r on r.platform_id = p.id and r.status = ?`, StatusNew).
		Where("p.client_id = ?", clientID).
		Group("p.id, p.number, p.url").
		Order("p.number").
		Scan(&out).Error
	return out, err
}

func (s *Store) Create(ctx context.Context, r *Review) error {
	return s.DB.WithContext(ctx).Create(r).Error
}

func (s *Store) UpdateStatus(ctx context.Context, id uint64, status string) error {
	return s.DB.WithContext(ctx).Model(&Review{}).
		Where("id = ?", id).Update("status", status).Error
}

func (s *Store) UpdateText(ctx context.Context, id uint64, text string) error {
	return s.DB.WithContext(ctx).Model(&Review{}).
		Where("id = ?", id).Update("text", text).Error
}

func (s *Store) UpdateComment(ctx context.Context, id uint64, comment string) error {
	return s.DB.WithContext(ctx).Model(&Review{}).
		Where("id = ?", id).Update("manager_comment", comment).Error
}

// UpdatePhoto attaches a photo folder to a review and marks it approved,
// mirroring the "photos added" flow where attaching implies sign-off.
func (s *Store) UpdatePhoto(ctx context.Context, id uint64, link string) error {
	return s.DB.WithContext(ctx).Model(&Review{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": StatusApproved, "photo_link": link}).Error
}

func (s *Store) ByID(ctx context.Context, id uint64) (*Review, error) {
	var r Review
	if err := s.DB.WithContext(ctx).First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) NewReviews(ctx context.Context, clientID, platformID uint64) ([]Review, error) {
	var out []Review
	err := s.DB.WithContext(ctx).
		Where("client_id = ? AND platform_id = ? AND status = ?", clientID, platformID, StatusNew).
		Order("id").
		Find(&out).Error
	return out, err
}

// ClientReview is a review joined with its platform number, the form the
// sync engine diffs against document rows.
type ClientReview struct {
	ID             uint64
	PlatformID     uint64
	PlatformNumber int
	Text           string
	Date           string
	ManagerComment string
	Status         string
	PhotoLink      *string
}

// ByClient returns every review of a client with the owning platform number.
func (s *Store) ByClient(ctx context.Context, clientID uint64) ([]ClientReview, error) {
	var out []ClientReview
	err := s.DB.WithContext(ctx).
		Table("reviews r").
		Select(`r.id, r.platform_id, p.number as platform_number, r.text, r.date,
			r.manager_comment, r.status, r.photo_link`).
		Joins("join platforms p on p.id = r.platform_id").
		Where("r.client_id = ?", clientID).
		Scan(&out).Error
	return out, err
}

// NewCount is the per-platform count of new reviews fed to the notification
// scheduler.
type NewCount struct {
	PlatformID     uint64
	PlatformNumber int
	Count          int64
}

// NewCounts reports every platform of the client, zero counts included, so
// the scheduler also observes a count that dropped all the way to zero.
func (s *Store) NewCounts(ctx context.Context, clientID uint64) ([]NewCount, error) {
	var out []NewCount
	err := s.DB.WithContext(ctx).
		Table("platforms p").
		Select("p.id as platform_id, p.number as platform_number, count(r.id) as count").
		Joins("left join reviews r on r.platform_id = p.id and r.status = ?", StatusNew).
		Where("p.client_id = ?", clientID).
		Group("p.id, p.number").
		Order("p.number").
		Scan(&out).Error
	return out, err
}

func (s *Store) CreatePhotoPack(ctx context.Context, pack *PhotoPack) error {
	return s.DB.WithContext(ctx).Create(pack).Error
}

func (s *Store) UnsyncedPhotoPacks(ctx context.Context, clientID uint64) ([]PhotoPack, error) {
	var out []PhotoPack
	err := s.DB.WithContext(ctx).
		Where("client_id = ? AND synced = ?", clientID, false).
		Order("id").
		Find(&out).Error
	return out, err
}

func (s *Store) MarkPhotoPackSynced(ctx context.Context, id uint64) error {
	return s.DB.WithContext(ctx).Model(&PhotoPack{}).
		Where("id = ?", id).Update("synced", true).Error
}
