package workers

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/phonginreallife/contracthub/authz"
	"github.com/phonginreallife/contracthub/db"
	"github.com/phonginreallife/contracthub/services"
)

// ExportWorker turns queued export jobs into CSV files
type ExportWorker struct {
	Exports    *services.ExportService
	Contracts  authz.ContractRepository
	PopTimeout time.Duration
	logger     zerolog.Logger
}

func NewExportWorker(exports *services.ExportService, contracts authz.ContractRepository, logger zerolog.Logger) *ExportWorker {
	return &ExportWorker{
		Exports:    exports,
		Contracts:  contracts,
		PopTimeout: 5 * time.Second,
		logger:     logger.With().Str("worker", "export").Logger(),
	}
}

// Run processes jobs until ctx is cancelled
func (w *ExportWorker) Run(ctx context.Context) error {
	w.logger.Info().Dur("pop_timeout", w.PopTimeout).Msg("export worker started")

	for {
		if ctx.Err() != nil {
			w.logger.Info().Msg("export worker stopped")
			return nil
		}

		if _, err := w.ProcessNext(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error().Err(err).Msg("failed to process export job")
			// back off so a broken queue does not spin
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessNext waits for one job and runs it. It reports whether a job was taken.
func (w *ExportWorker) ProcessNext(ctx context.Context) (bool, error) {
	jobID, err := w.Exports.Queue.Pop(ctx, w.PopTimeout)
	if err != nil {
		return false, err
	}
	if jobID == "" {
		return false, nil
	}

	job, err := w.Exports.Claim(ctx, jobID)
	if err != nil {
		if errors.Is(err, services.ErrExportNotFound) {
			// status hash expired before the job was picked up
			w.logger.Warn().Str("job_id", jobID).Msg("dropping expired export job")
			return true, nil
		}
		return true, err
	}

	log := w.logger.With().Str("job_id", job.ID).Logger()
	start := time.Now()

	location, runErr := w.run(ctx, job)
	if err := w.Exports.Finish(ctx, job, location, runErr); err != nil {
		return true, fmt.Errorf("failed to record export result: %w", err)
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("export failed")
	} else {
		log.Info().
			Str("location", location).
			Dur("duration", time.Since(start)).
			Msg("export finished")
	}
	return true, nil
}

func (w *ExportWorker) run(ctx context.Context, job *services.ExportJob) (string, error) {
	var (
		contracts []db.Contract
		err       error
	)
	if job.All {
		contracts, err = w.Contracts.List(ctx)
	} else {
		contracts, err = w.Contracts.ListByIDs(ctx, job.ContractIDs)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load contracts: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteContractsCSV(&buf, contracts); err != nil {
		return "", err
	}
	return w.Exports.Store.Put(ctx, job.FileName(), buf.Bytes())
}

// WriteContractsCSV writes one "title,status" row per contract
func WriteContractsCSV(out io.Writer, contracts []db.Contract) error {
	cw := csv.NewWriter(out)
	for _, c := range contracts {
		if err := cw.Write([]string{c.Title, string(c.Status)}); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
