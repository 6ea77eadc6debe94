package client

// Client is a tenant whose reviews are tracked. Number is the human-facing
// identifier staff and users refer to; ChatID is the bound messaging session,
// set on login and cleared on logout.
type Client struct {
	ID           uint64 `gorm:"primaryKey"`
	Number       int    `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null;default:''"`
	Authorized   bool   `gorm:"not null;default:false"`
	ChatID       *int64
}

// Stats summarizes a client's tracked data for the /stats views.
type Stats struct {
	Platforms       int64 `json:"platforms_count"`
	TotalReviews    int64 `json:"total_reviews"`
	ApprovedReviews int64 `json:"approved_reviews"`
	NewReviews      int64 `json:"new_reviews"`
}
