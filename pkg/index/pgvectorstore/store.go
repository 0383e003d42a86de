package pgvectorstore

import (
	"context"
	"fmt"

	"service-resolver-be/pkg/index"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// ServiceEntry is one catalog row: a canonical service name plus the
// generalization text that was embedded.
type ServiceEntry struct {
	Id                 int64           `gorm:"primaryKey;autoIncrement"`
	Collection         string          `gorm:"type:varchar(128);index;not null"`
	ServiceName        string          `gorm:"type:text;not null"`
	GeneralizationText string          `gorm:"type:text"`
	CombinedEmbedding  pgvector.Vector `gorm:"type:vector(1024)"`
}

func (ServiceEntry) TableName() string {
	return "service_entries"
}

// Store implements index.Client against a pgvector-enabled Postgres table.
// Alternative backend for deployments without a Milvus instance.
type Store struct {
	db *gorm.DB
}

var _ index.Client = &Store{}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Search(ctx context.Context, collection string, vector []float32, limit int) ([]index.Candidate, error) {
	if limit <= 0 {
		limit = 10
	}

	type row struct {
		Id                 int64
		ServiceName        string
		GeneralizationText string
		Similarity         float64
	}
	var rows []row

	queryVector := pgvector.NewVector(vector)

	// Cosine distance in pgvector is 1 - cosine_similarity.
	err := s.db.WithContext(ctx).
		Table("service_entries").
		Select("id, service_name, generalization_text, 1 - (combined_embedding <=> ?) as similarity", queryVector).
		Where("collection = ?", collection).
		Order("similarity DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}

	candidates := make([]index.Candidate, len(rows))
	for i, r := range rows {
		candidates[i] = index.Candidate{
			ServiceName:        r.ServiceName,
			GeneralizationText: r.GeneralizationText,
			Similarity:         r.Similarity,
			ExternalID:         fmt.Sprint(r.Id),
		}
	}
	return candidates, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
