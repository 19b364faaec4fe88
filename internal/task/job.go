package task

import (
	"github.com/google/uuid"
	"github.com/phrazzld/gamegen-api/internal/domain"
)

// Job is a unit of background work: generate code for Prompt and record the
// outcome on task TaskID.
type Job struct {
	TaskID uuid.UUID
	Prompt string
}

// Outcome is the terminal state computed for a job before it is written to
// the store.
type Outcome struct {
	Status domain.TaskStatus
	Result string
	Detail string
}

func completedOutcome(result string) Outcome {
	return Outcome{Status: domain.TaskStatusCompleted, Result: result}
}

func failedOutcome() Outcome {
	return Outcome{Status: domain.TaskStatusFailed}
}

func errorOutcome(detail string) Outcome {
	return Outcome{Status: domain.TaskStatusError, Detail: detail}
}
