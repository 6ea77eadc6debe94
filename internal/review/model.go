package review

import "time"

// Status values follow the review lifecycle: new -> pending -> approved/rejected.
const (
	StatusNew      = "new"
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Terminal reports whether a status can no longer be promoted by the sync
// engine.
func Terminal(status string) bool {
	return status == StatusApproved || status == StatusRejected
}

// Platform is a review source belonging to one client. Number is unique
// within the client and immutable once created.
type Platform struct {
	ID       uint64  `gorm:"primaryKey"`
	ClientID uint64  `gorm:"index;not null"`
	Number   int     `gorm:"not null"`
	URL      *string `gorm:"type:text"`
}

// Review is matched across the document and the database by the composite
// key (platform number, text, date). Date stays the display string from the
// sheet, never a parsed time.
type Review struct {
	ID             uint64 `gorm:"primaryKey"`
	ClientID       uint64 `gorm:"index;not null"`
	PlatformID     uint64 `gorm:"index;not null"`
	Text           string `gorm:"type:text;not null"`
	Date           string `gorm:"type:text;not null;default:''"`
	ManagerComment string `gorm:"type:text;not null;default:''"`
	Status         string `gorm:"not null"`
	PhotoLink      *string
}

// PhotoPack is a folder of images attached to a whole platform. Synced flips
// once the pack row has been exported to the client's sheet; packs are never
// deleted.
type PhotoPack struct {
	ID         uint64    `gorm:"primaryKey"`
	ClientID   uint64    `gorm:"index;not null"`
	PlatformID uint64    `gorm:"index;not null"`
	FolderLink string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
	Synced     bool      `gorm:"not null;default:false"`
}
