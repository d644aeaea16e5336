package store_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/arabic-corpus/ingest-pipeline/internal/config"
	st "github.com/arabic-corpus/ingest-pipeline/internal/store"
	"github.com/arabic-corpus/ingest-pipeline/internal/store/model"
)

var _ = Describe("ingest job stage store", Ordered, func() {
	var (
		s      st.Store
		gormdb *gorm.DB
		jobID  uuid.UUID
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

	BeforeEach(func() {
		job, err := s.IngestJob().Create(context.TODO(), model.IngestJob{EditionID: uuid.New()})
		Expect(err).To(BeNil())
		jobID = job.ID
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM ingest_job_stages;")
		gormdb.Exec("DELETE FROM ingest_jobs;")
	})

	Context("upsert", func() {
		It("inserts a new stage row", func() {
			stage, err := s.IngestJobStage().Upsert(context.TODO(), model.IngestJobStage{
				IngestJobID: jobID,
				PageID:      model.PageIDGlobal,
				StageName:   "import_pages",
				Status:      model.StageStatusRunning,
			})
			Expect(err).To(BeNil())
			Expect(stage.Status).To(Equal(model.StageStatusRunning))

			stored, err := s.IngestJobStage().Get(context.TODO(), jobID, model.PageIDGlobal, "import_pages")
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.StageStatusRunning))
		})

		It("overwrites an existing row instead of creating a second one", func() {
			_, err := s.IngestJobStage().Upsert(context.TODO(), model.IngestJobStage{
				IngestJobID: jobID,
				PageID:      model.PageIDGlobal,
				StageName:   "run_ocr",
				Status:      model.StageStatusRunning,
			})
			Expect(err).To(BeNil())

			msg := "ocr backend unavailable"
			_, err = s.IngestJobStage().Upsert(context.TODO(), model.IngestJobStage{
				IngestJobID:  jobID,
				PageID:       model.PageIDGlobal,
				StageName:    "run_ocr",
				Status:       model.StageStatusFailed,
				ErrorMessage: &msg,
			})
			Expect(err).To(BeNil())

			stages, err := s.IngestJobStage().List(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(stages).To(HaveLen(1))
			Expect(stages[0].Status).To(Equal(model.StageStatusFailed))
			Expect(stages[0].ErrorMessage).ToNot(BeNil())
			Expect(*stages[0].ErrorMessage).To(Equal(msg))
		})

		It("keeps rows for distinct pages of the same stage apart", func() {
			page1 := uuid.New()
			page2 := uuid.New()
			for _, pageID := range []uuid.UUID{page1, page2} {
				_, err := s.IngestJobStage().Upsert(context.TODO(), model.IngestJobStage{
					IngestJobID: jobID,
					PageID:      pageID,
					StageName:   "run_ocr",
					Status:      model.StageStatusCompleted,
				})
				Expect(err).To(BeNil())
			}

			stages, err := s.IngestJobStage().List(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(stages).To(HaveLen(2))
		})
	})

	Context("get", func() {
		It("returns ErrRecordNotFound for a missing row", func() {
			_, err := s.IngestJobStage().Get(context.TODO(), jobID, model.PageIDGlobal, "qa_checks")
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("count incomplete", func() {
		It("counts rows not yet completed for one stage", func() {
			pages := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
			statuses := []model.StageStatus{model.StageStatusCompleted, model.StageStatusRunning, model.StageStatusFailed}
			for i, pageID := range pages {
				_, err := s.IngestJobStage().Upsert(context.TODO(), model.IngestJobStage{
					IngestJobID: jobID,
					PageID:      pageID,
					StageName:   "run_ocr",
					Status:      statuses[i],
				})
				Expect(err).To(BeNil())
			}

			count, err := s.IngestJobStage().CountIncomplete(context.TODO(), jobID, "run_ocr")
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(2)))
		})

		It("returns zero when every page completed", func() {
			_, err := s.IngestJobStage().Upsert(context.TODO(), model.IngestJobStage{
				IngestJobID: jobID,
				PageID:      uuid.New(),
				StageName:   "normalize_lines",
				Status:      model.StageStatusCompleted,
			})
			Expect(err).To(BeNil())

			count, err := s.IngestJobStage().CountIncomplete(context.TODO(), jobID, "normalize_lines")
			Expect(err).To(BeNil())
			Expect(count).To(BeZero())
		})
	})
})
