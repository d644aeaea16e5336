package mappers

import (
	api "github.com/arabic-corpus/ingest-pipeline/api/v1alpha1"
	"github.com/arabic-corpus/ingest-pipeline/internal/store/model"
)

func IngestJobToApi(job *model.IngestJob, stages []model.IngestJobStage) api.IngestJob {
	apiStages := make([]api.IngestJobStage, 0, len(stages))
	for _, stage := range stages {
		var pageID *string
		if stage.PageScoped() {
			id := stage.PageID.String()
			pageID = &id
		}
		apiStages = append(apiStages, api.IngestJobStage{
			StageName:    stage.StageName,
			PageId:       pageID,
			Status:       string(stage.Status),
			ErrorMessage: stage.ErrorMessage,
			UpdatedAt:    stage.UpdatedAt,
		})
	}

	return api.IngestJob{
		Id:          job.ID.String(),
		EditionId:   job.EditionID.String(),
		Status:      string(job.Status),
		ProgressPct: job.ProgressPct,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		Stages:      apiStages,
	}
}
