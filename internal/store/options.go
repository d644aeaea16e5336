package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/arabic-corpus/ingest-pipeline/internal/store/model"
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type IngestJobQueryFilter BaseQuerier

func NewIngestJobQueryFilter() *IngestJobQueryFilter {
	return &IngestJobQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *IngestJobQueryFilter) ByStatus(status model.JobStatus) *IngestJobQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status = ?", status)
	})
	return qf
}

func (qf *IngestJobQueryFilter) ByEditionID(editionID string) *IngestJobQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("edition_id = ?", editionID)
	})
	return qf
}

// UpdatedBefore selects jobs whose last write is older than the given
// moment. The reconciler uses it to find jobs stuck in queued.
func (qf *IngestJobQueryFilter) UpdatedBefore(t time.Time) *IngestJobQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("updated_at < ?", t)
	})
	return qf
}
