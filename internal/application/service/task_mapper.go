package service

import (
	"medinotes/internal/application/dto"
	"medinotes/internal/application/worker"
)

// toTaskResponse converts a pool snapshot into its API representation.
func toTaskResponse(snapshot worker.TaskSnapshot) dto.TaskResponse {
	response := dto.TaskResponse{
		ID:           snapshot.ID,
		NoteID:       snapshot.NoteID,
		Status:       snapshot.Status.String(),
		CreatedAt:    snapshot.CreatedAt,
		StartedAt:    snapshot.StartedAt,
		CompletedAt:  snapshot.CompletedAt,
		ErrorMessage: snapshot.ErrorMessage,
		Result:       snapshot.Result,
		RetryCount:   snapshot.RetryCount,
		MaxRetries:   snapshot.MaxRetries,
	}
	if snapshot.Duration != nil {
		formatted := snapshot.Duration.String()
		response.Duration = &formatted
	}
	return response
}

func toQueueStatsResponse(stats worker.QueueStats) *dto.QueueStatsResponse {
	return &dto.QueueStatsResponse{
		Workload:     stats.Workload,
		MaxWorkers:   stats.MaxWorkers,
		MaxQueueSize: stats.MaxQueueSize,
		Queued:       stats.Queued,
		Processing:   stats.Processing,
		Completed:    stats.Completed,
		Failed:       stats.Failed,
		QueueFull:    stats.QueueFull,
	}
}
