package ingest

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/hivemind/pkg/errors"
)

type Status string

const (
	StatusIndexing Status = "indexing"
	StatusIndexed  Status = "indexed"
	StatusFailed   Status = "failed"
)

/*
Progress is emitted by a Worker as each document moves through the batch.
*/
type Progress struct {
	Location string
	Status   Status
	Report   Report
	Err      error
}

func (progress Progress) String() string {
	switch progress.Status {
	case StatusIndexing:
		return fmt.Sprintf("Indexing %s...", progress.Location)
	case StatusIndexed:
		return fmt.Sprintf("Indexed: %s", progress.Location)
	default:
		return fmt.Sprintf("Error: %s: %v", progress.Location, progress.Err)
	}
}

/*
Worker ingests a batch of documents on a single background goroutine, so
queries stay responsive while a batch is running. One failing document does
not stop the rest of the batch.
*/
type Worker struct {
	pipeline *Pipeline
}

func NewWorker(pipeline *Pipeline) *Worker {
	return &Worker{pipeline: pipeline}
}

/*
Start begins ingesting locations in order and returns a channel of progress
events. The channel is closed when the batch is done or ctx is cancelled;
cancellation is checked between documents.
*/
func (worker *Worker) Start(ctx context.Context, locations []string) <-chan Progress {
	out := make(chan Progress)

	go func() {
		defer close(out)

		for _, location := range locations {
			if ctx.Err() != nil {
				return
			}

			if !send(ctx, out, Progress{Location: location, Status: StatusIndexing}) {
				return
			}

			report, err := worker.pipeline.IngestFile(ctx, location)
			progress := Progress{Location: location, Status: StatusIndexed, Report: report}

			if err != nil {
				log.Error("failed to ingest document", "location", location, "error", err)
				progress.Status = StatusFailed
				progress.Err = err
			}

			if !send(ctx, out, progress) {
				return
			}
		}
	}()

	return out
}

/*
Run ingests locations and blocks until the batch finishes. Per-document
failures are collected into one aggregate error alongside the successful
reports.
*/
func (worker *Worker) Run(
	ctx context.Context, locations []string, observe func(Progress),
) ([]Report, error) {
	var (
		reports []Report
		failed  = errors.NewError()
	)

	for progress := range worker.Start(ctx, locations) {
		if observe != nil {
			observe(progress)
		}

		switch progress.Status {
		case StatusIndexed:
			reports = append(reports, progress.Report)
		case StatusFailed:
			failed.Add(progress.Err)
		}
	}

	if ctx.Err() != nil {
		failed.Add(ctx.Err())
	}

	return reports, failed.ErrOrNil()
}

func send(ctx context.Context, out chan<- Progress, progress Progress) bool {
	select {
	case out <- progress:
		return true
	case <-ctx.Done():
		return false
	}
}
