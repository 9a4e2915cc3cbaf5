package postgres

import "time"

// PriceSampleRecord is one accepted ticker price.
type PriceSampleRecord struct {
	ID uint `gorm:"primaryKey"`

	Product    string    `gorm:"type:text;not null;index:idx_price_sample_product_observed,priority:1"`
	ObservedAt time.Time `gorm:"not null;index:idx_price_sample_product_observed,priority:2;index:idx_price_sample_observed"`
	Price      float64   `gorm:"type:double precision;not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (PriceSampleRecord) TableName() string {
	return "price_sample"
}
