package models

// AssetCategory tags a ledger with where and how its assets live.
// Categories are immutable once a ledger references them.
type AssetCategory struct {
	Base
	Region         string `gorm:"not null" json:"region"`
	CategoryType   string `gorm:"not null" json:"category_type"`
	RedeemLocation string `gorm:"not null" json:"redeem_location"`
}
