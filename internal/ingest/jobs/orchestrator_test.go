package jobs_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/arabic-corpus/ingest-pipeline/internal/config"
	"github.com/arabic-corpus/ingest-pipeline/internal/ingest"
	"github.com/arabic-corpus/ingest-pipeline/internal/ingest/jobs"
	st "github.com/arabic-corpus/ingest-pipeline/internal/store"
	"github.com/arabic-corpus/ingest-pipeline/internal/store/model"
)

// fakeEnqueuer collects enqueued stage tasks instead of hitting a queue.
type fakeEnqueuer struct {
	enqueued []jobs.StageArgs
	err      error
}

func (f *fakeEnqueuer) EnqueueStage(ctx context.Context, args jobs.StageArgs) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, args)
	return nil
}

// registryWith returns a registry where every stage succeeds except those
// overridden by the caller.
func registryWith(overrides map[ingest.Stage]ingest.StageHandler) *ingest.HandlerRegistry {
	registry := ingest.NewHandlerRegistry()
	succeed := func(ctx context.Context, in ingest.StageInput) error { return nil }
	for _, stage := range ingest.Stages() {
		if handler, found := overrides[stage]; found {
			registry.Register(stage, handler)
			continue
		}
		registry.Register(stage, succeed)
	}
	return registry
}

var _ = Describe("orchestrator", Ordered, func() {
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

	newJob := func() *model.IngestJob {
		job, err := s.IngestJob().Create(context.TODO(), model.IngestJob{EditionID: uuid.New()})
		Expect(err).To(BeNil())
		return job
	}

	// drain executes tasks the way the queue would, one at a time, until
	// nothing more is enqueued.
	drain := func(o *jobs.Orchestrator, enq *fakeEnqueuer, first jobs.StageArgs) error {
		pending := []jobs.StageArgs{first}
		for len(pending) > 0 {
			args := pending[0]
			pending = pending[1:]
			if err := o.ExecuteStage(context.TODO(), args, enq); err != nil {
				return err
			}
			pending = append(pending, enq.enqueued...)
			enq.enqueued = nil
		}
		return nil
	}

	Context("successful pipeline", func() {
		It("runs every stage in order and completes the job at 100 percent", func() {
			var executed []ingest.Stage
			overrides := map[ingest.Stage]ingest.StageHandler{}
			for _, stage := range ingest.Stages() {
				stage := stage
				overrides[stage] = func(ctx context.Context, in ingest.StageInput) error {
					executed = append(executed, stage)
					return nil
				}
			}

			job := newJob()
			o := jobs.NewOrchestrator(s, registryWith(overrides))
			enq := &fakeEnqueuer{}

			err := drain(o, enq, jobs.StageArgs{JobID: job.ID, EditionID: job.EditionID, Stage: ingest.FirstStage()})
			Expect(err).To(BeNil())
			Expect(executed).To(Equal(ingest.Stages()))

			stored, err := s.IngestJob().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusCompleted))
			Expect(stored.ProgressPct).To(Equal(100.0))

			stages, err := s.IngestJobStage().List(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stages).To(HaveLen(ingest.StageCount()))
			for _, stage := range stages {
				Expect(stage.Status).To(Equal(model.StageStatusCompleted))
			}
		})

		It("bumps progress after each intermediate stage", func() {
			job := newJob()
			o := jobs.NewOrchestrator(s, registryWith(nil))
			enq := &fakeEnqueuer{}

			err := o.ExecuteStage(context.TODO(), jobs.StageArgs{JobID: job.ID, EditionID: job.EditionID, Stage: ingest.StageImportPages}, enq)
			Expect(err).To(BeNil())

			stored, err := s.IngestJob().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusRunning))
			Expect(stored.ProgressPct).To(BeNumerically("~", 100.0/7.0, 0.001))

			Expect(enq.enqueued).To(HaveLen(1))
			Expect(enq.enqueued[0].Stage).To(Equal(ingest.StageRunOcr))
			Expect(enq.enqueued[0].JobID).To(Equal(job.ID))
		})
	})

	Context("failing stage", func() {
		It("returns the handler error so the queue can retry", func() {
			handlerErr := errors.New("qa threshold not met")
			overrides := map[ingest.Stage]ingest.StageHandler{
				ingest.StageQaChecks: func(ctx context.Context, in ingest.StageInput) error { return handlerErr },
			}

			job := newJob()
			o := jobs.NewOrchestrator(s, registryWith(overrides))
			enq := &fakeEnqueuer{}

			err := o.ExecuteStage(context.TODO(), jobs.StageArgs{JobID: job.ID, EditionID: job.EditionID, Stage: ingest.StageQaChecks}, enq)
			Expect(err).To(MatchError(handlerErr))
			Expect(enq.enqueued).To(BeEmpty())

			stage, err := s.IngestJobStage().Get(context.TODO(), job.ID, model.PageIDGlobal, "qa_checks")
			Expect(err).To(BeNil())
			Expect(stage.Status).To(Equal(model.StageStatusRunning))
		})

		It("freezes the job once the failure is recorded", func() {
			job := newJob()
			o := jobs.NewOrchestrator(s, registryWith(nil))
			Expect(s.IngestJob().UpdateProgress(context.TODO(), job.ID, 600.0/7.0, model.JobStatusRunning)).To(BeNil())

			taskErr := errors.New("qa threshold not met")
			args := jobs.StageArgs{JobID: job.ID, EditionID: job.EditionID, Stage: ingest.StageQaChecks}
			Expect(o.RecordFailure(context.TODO(), args, taskErr)).To(BeNil())

			stored, err := s.IngestJob().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusFailed))
			Expect(stored.ProgressPct).To(BeNumerically("~", 600.0/7.0, 0.001))

			stage, err := s.IngestJobStage().Get(context.TODO(), job.ID, model.PageIDGlobal, "qa_checks")
			Expect(err).To(BeNil())
			Expect(stage.Status).To(Equal(model.StageStatusFailed))
			Expect(stage.ErrorMessage).ToNot(BeNil())
			Expect(*stage.ErrorMessage).To(Equal("qa threshold not met"))

			// publish_release never ran.
			_, err = s.IngestJobStage().Get(context.TODO(), job.ID, model.PageIDGlobal, "publish_release")
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})

		It("executes nothing for a terminal job", func() {
			called := false
			overrides := map[ingest.Stage]ingest.StageHandler{
				ingest.StageRunOcr: func(ctx context.Context, in ingest.StageInput) error {
					called = true
					return nil
				},
			}

			job := newJob()
			Expect(s.IngestJob().UpdateProgress(context.TODO(), job.ID, 50, model.JobStatusFailed)).To(BeNil())

			o := jobs.NewOrchestrator(s, registryWith(overrides))
			enq := &fakeEnqueuer{}
			err := o.ExecuteStage(context.TODO(), jobs.StageArgs{JobID: job.ID, EditionID: job.EditionID, Stage: ingest.StageRunOcr}, enq)
			Expect(err).To(BeNil())
			Expect(called).To(BeFalse())
			Expect(enq.enqueued).To(BeEmpty())
		})
	})

	Context("duplicate delivery", func() {
		It("skips the handler for an already completed stage and re-runs the advance", func() {
			calls := 0
			overrides := map[ingest.Stage]ingest.StageHandler{
				ingest.StageImportPages: func(ctx context.Context, in ingest.StageInput) error {
					calls++
					return nil
				},
			}

			job := newJob()
			o := jobs.NewOrchestrator(s, registryWith(overrides))
			enq := &fakeEnqueuer{}
			args := jobs.StageArgs{JobID: job.ID, EditionID: job.EditionID, Stage: ingest.StageImportPages}

			Expect(o.ExecuteStage(context.TODO(), args, enq)).To(BeNil())
			Expect(o.ExecuteStage(context.TODO(), args, enq)).To(BeNil())

			Expect(calls).To(Equal(1))
			// Both deliveries enqueue the successor; the queue's uniqueness
			// on args collapses them into one task.
			Expect(enq.enqueued).To(HaveLen(2))
			Expect(enq.enqueued[0]).To(Equal(enq.enqueued[1]))
		})

		It("never lowers progress when an old task is redelivered", func() {
			job := newJob()
			o := jobs.NewOrchestrator(s, registryWith(nil))
			enq := &fakeEnqueuer{}
			args := jobs.StageArgs{JobID: job.ID, EditionID: job.EditionID, Stage: ingest.StageImportPages}

			Expect(o.ExecuteStage(context.TODO(), args, enq)).To(BeNil())
			Expect(s.IngestJob().UpdateProgress(context.TODO(), job.ID, 500.0/7.0, model.JobStatusRunning)).To(BeNil())

			Expect(o.ExecuteStage(context.TODO(), args, enq)).To(BeNil())

			stored, err := s.IngestJob().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.ProgressPct).To(BeNumerically("~", 500.0/7.0, 0.001))
		})
	})

	Context("page fan-out", func() {
		It("advances only after the last page of the stage completes", func() {
			job := newJob()
			o := jobs.NewOrchestrator(s, registryWith(nil))
			enq := &fakeEnqueuer{}

			page1 := uuid.New()
			page2 := uuid.New()

			// Seed the sibling row so the first completion sees it pending.
			_, err := s.IngestJobStage().Upsert(context.TODO(), model.IngestJobStage{
				IngestJobID: job.ID,
				PageID:      page2,
				StageName:   "run_ocr",
				Status:      model.StageStatusQueued,
			})
			Expect(err).To(BeNil())

			err = o.ExecuteStage(context.TODO(), jobs.StageArgs{JobID: job.ID, EditionID: job.EditionID, Stage: ingest.StageRunOcr, PageID: &page1}, enq)
			Expect(err).To(BeNil())
			Expect(enq.enqueued).To(BeEmpty())

			err = o.ExecuteStage(context.TODO(), jobs.StageArgs{JobID: job.ID, EditionID: job.EditionID, Stage: ingest.StageRunOcr, PageID: &page2}, enq)
			Expect(err).To(BeNil())
			Expect(enq.enqueued).To(HaveLen(1))
			Expect(enq.enqueued[0].Stage).To(Equal(ingest.StageNormalizeLines))
		})
	})

	Context("unknown stage", func() {
		It("surfaces UnknownStageError after marking the row running", func() {
			job := newJob()
			o := jobs.NewOrchestrator(s, registryWith(nil))
			enq := &fakeEnqueuer{}

			err := o.ExecuteStage(context.TODO(), jobs.StageArgs{JobID: job.ID, EditionID: job.EditionID, Stage: ingest.Stage("reticulate_splines")}, enq)
			var unknownErr *ingest.UnknownStageError
			Expect(errors.As(err, &unknownErr)).To(BeTrue())
			Expect(enq.enqueued).To(BeEmpty())
		})
	})
})
