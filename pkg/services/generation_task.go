package services

import (
	"context"

	"github.com/ekaya-inc/ekaya-content/pkg/services/workqueue"
)

// GenerationTask runs one generation job on the work queue.
type GenerationTask struct {
	workqueue.BaseTask
	runner GenerationRunner
	spec   JobSpec
}

// NewGenerationTask creates a queue task for a job.
func NewGenerationTask(runner GenerationRunner, spec JobSpec) *GenerationTask {
	return &GenerationTask{
		BaseTask: workqueue.NewBaseTask("generate:" + spec.ProjectID.String()),
		runner:   runner,
		spec:     spec,
	}
}

// Execute runs the job. Unit failures are recorded in the job output and
// do not fail the task.
func (t *GenerationTask) Execute(ctx context.Context) error {
	return t.runner.Run(ctx, t.spec)
}

// OnDrop marks the project failed when the queue discards the job unrun.
func (t *GenerationTask) OnDrop() {
	t.runner.Abandon(context.Background(), t.spec, "generation job dropped at shutdown")
}

var (
	_ workqueue.Task    = (*GenerationTask)(nil)
	_ workqueue.Dropper = (*GenerationTask)(nil)
)
