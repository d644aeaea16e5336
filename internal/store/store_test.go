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

var _ = Describe("Store", Ordered, func() {
	var (
		store  st.Store
		gormDB *gorm.DB
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		db, err := st.InitDB(cfg)
		Expect(err).To(BeNil())
		gormDB = db

		store = st.NewStore(db)
		Expect(store).ToNot(BeNil())
		Expect(store.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		store.Close()
	})

	AfterEach(func() {
		gormDB.Exec("DELETE FROM ingest_job_stages;")
		gormDB.Exec("DELETE FROM ingest_jobs;")
	})

	Context("transaction", func() {
		It("commits an inserted job", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			job, err := store.IngestJob().Create(ctx, model.IngestJob{EditionID: uuid.New()})
			Expect(err).To(BeNil())

			_, err = st.Commit(ctx)
			Expect(err).To(BeNil())

			stored, err := store.IngestJob().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.ID).To(Equal(job.ID))
		})

		It("discards an inserted job on rollback", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			job, err := store.IngestJob().Create(ctx, model.IngestJob{EditionID: uuid.New()})
			Expect(err).To(BeNil())

			_, err = st.Rollback(ctx)
			Expect(err).To(BeNil())

			_, err = store.IngestJob().Get(context.TODO(), job.ID)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})
})
