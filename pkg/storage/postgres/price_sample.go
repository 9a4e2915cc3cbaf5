package postgres

import (
	"context"
	"slices"
	"time"

	"livechart/pkg/storage"
)

var _ storage.SampleStore = (*PostgresClient)(nil)

func (p *PostgresClient) SaveSample(ctx context.Context, s storage.Sample) error {
	return p.DB.WithContext(ctx).Create(ToPriceSampleRecord(s)).Error
}

// RecentSamples returns the newest limit samples for product, oldest first.
func (p *PostgresClient) RecentSamples(ctx context.Context, product string, limit int) ([]storage.Sample, error) {
	var records []PriceSampleRecord
	err := p.DB.WithContext(ctx).
		Where("product = ?", product).
		Order("observed_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	slices.Reverse(records)
	out := make([]storage.Sample, 0, len(records))
	for _, r := range records {
		out = append(out, r.ToSample())
	}
	return out, nil
}

func (p *PostgresClient) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tx := p.DB.WithContext(ctx).
		Where("observed_at < ?", before).
		Delete(&PriceSampleRecord{})
	return tx.RowsAffected, tx.Error
}

// ToPriceSampleRecord converts a sample into a PriceSampleRecord for DB insertion.
func ToPriceSampleRecord(s storage.Sample) *PriceSampleRecord {
	return &PriceSampleRecord{
		Product:    s.Product,
		Price:      s.Price,
		ObservedAt: s.ObservedAt.UTC(),
	}
}

func (r PriceSampleRecord) ToSample() storage.Sample {
	return storage.Sample{
		Product:    r.Product,
		Price:      r.Price,
		ObservedAt: r.ObservedAt,
	}
}
