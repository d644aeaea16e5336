package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/arabic-corpus/ingest-pipeline/internal/config"
	st "github.com/arabic-corpus/ingest-pipeline/internal/store"
	"github.com/arabic-corpus/ingest-pipeline/internal/store/model"
)

var _ = Describe("ingest job store", Ordered, func() {
	var (
		s      st.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		db, err := st.InitDB(cfg)
		Expect(err).To(BeNil())

		s = st.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM ingest_job_stages;")
		gormdb.Exec("DELETE FROM ingest_jobs;")
	})

	Context("create", func() {
		It("creates a job with generated id and queued status", func() {
			editionID := uuid.New()
			job, err := s.IngestJob().Create(context.TODO(), model.IngestJob{EditionID: editionID, CreatedBy: "tester"})
			Expect(err).To(BeNil())
			Expect(job.ID).ToNot(Equal(uuid.Nil))
			Expect(job.Status).To(Equal(model.JobStatusQueued))
			Expect(job.ProgressPct).To(BeZero())
			Expect(job.EditionID).To(Equal(editionID))
		})

		It("fails to create two jobs with the same id", func() {
			id := uuid.New()
			_, err := s.IngestJob().Create(context.TODO(), model.IngestJob{ID: id, EditionID: uuid.New()})
			Expect(err).To(BeNil())

			_, err = s.IngestJob().Create(context.TODO(), model.IngestJob{ID: id, EditionID: uuid.New()})
			Expect(err).ToNot(BeNil())
		})
	})

	Context("get", func() {
		It("returns the stored job", func() {
			created, err := s.IngestJob().Create(context.TODO(), model.IngestJob{EditionID: uuid.New()})
			Expect(err).To(BeNil())

			job, err := s.IngestJob().Get(context.TODO(), created.ID)
			Expect(err).To(BeNil())
			Expect(job.ID).To(Equal(created.ID))
		})

		It("returns ErrRecordNotFound for an unknown id", func() {
			_, err := s.IngestJob().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("list", func() {
		It("filters by status", func() {
			j1, err := s.IngestJob().Create(context.TODO(), model.IngestJob{EditionID: uuid.New()})
			Expect(err).To(BeNil())
			j2, err := s.IngestJob().Create(context.TODO(), model.IngestJob{EditionID: uuid.New()})
			Expect(err).To(BeNil())

			Expect(s.IngestJob().UpdateProgress(context.TODO(), j2.ID, 100, model.JobStatusCompleted)).To(BeNil())

			jobs, err := s.IngestJob().List(context.TODO(), st.NewIngestJobQueryFilter().ByStatus(model.JobStatusQueued))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].ID).To(Equal(j1.ID))
		})

		It("filters by update time", func() {
			job, err := s.IngestJob().Create(context.TODO(), model.IngestJob{EditionID: uuid.New()})
			Expect(err).To(BeNil())

			jobs, err := s.IngestJob().List(context.TODO(), st.NewIngestJobQueryFilter().UpdatedBefore(time.Now().Add(-time.Hour)))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(0))

			jobs, err = s.IngestJob().List(context.TODO(), st.NewIngestJobQueryFilter().UpdatedBefore(time.Now().Add(time.Hour)))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].ID).To(Equal(job.ID))
		})
	})

	Context("update progress", func() {
		It("persists progress and status", func() {
			job, err := s.IngestJob().Create(context.TODO(), model.IngestJob{EditionID: uuid.New()})
			Expect(err).To(BeNil())

			Expect(s.IngestJob().UpdateProgress(context.TODO(), job.ID, 42.86, model.JobStatusRunning)).To(BeNil())

			stored, err := s.IngestJob().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusRunning))
			Expect(stored.ProgressPct).To(BeNumerically("~", 42.86, 0.001))
		})

		It("returns ErrRecordNotFound when the job does not exist", func() {
			err := s.IngestJob().UpdateProgress(context.TODO(), uuid.New(), 10, model.JobStatusRunning)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})
})
