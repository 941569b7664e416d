package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/phonginreallife/contracthub/authz"
)

type ExportStatus string

const (
	ExportPending ExportStatus = "pending"
	ExportRunning ExportStatus = "running"
	ExportDone    ExportStatus = "done"
	ExportFailed  ExportStatus = "failed"
)

// ErrExportNotFound is returned for unknown or expired jobs
var ErrExportNotFound = fmt.Errorf("export job: %w", authz.ErrNotFound)

// ExportJob is the handle returned when a CSV export is requested
type ExportJob struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"-"`
	All         bool         `json:"all"`
	ContractIDs []string     `json:"contract_ids"`
	Status      ExportStatus `json:"status"`
	Location    string       `json:"location,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
}

// FileName is the name the CSV is stored under
func (j ExportJob) FileName() string {
	return "contracts-" + j.ID + ".csv"
}

// ExportService snapshots contract lists into CSV files asynchronously
type ExportService struct {
	Authorizer authz.Authorizer
	Queue      ExportQueue
	Store      ExportStore
	JobTTL     time.Duration
	now        func() time.Time
}

func NewExportService(az authz.Authorizer, queue ExportQueue, store ExportStore, jobTTL time.Duration) *ExportService {
	return &ExportService{
		Authorizer: az,
		Queue:      queue,
		Store:      store,
		JobTTL:     jobTTL,
		now:        time.Now,
	}
}

// Enqueue queues an export of contractIDs, restricted to the contracts the
// actor may list. An empty list exports everything listable.
func (s *ExportService) Enqueue(ctx context.Context, actorID string, contractIDs []string) (*ExportJob, error) {
	set, err := s.Authorizer.ListableContracts(ctx, actorID)
	if err != nil {
		return nil, err
	}

	job := &ExportJob{
		ID:        uuid.New().String(),
		OwnerID:   actorID,
		Status:    ExportPending,
		CreatedAt: s.now().UTC(),
	}

	switch {
	case len(contractIDs) == 0 && set.All:
		job.All = true
	case len(contractIDs) == 0:
		job.ContractIDs = set.IDs
	default:
		seen := make(map[string]struct{}, len(contractIDs))
		for _, id := range contractIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			if set.Contains(id) {
				job.ContractIDs = append(job.ContractIDs, id)
			}
		}
		if len(job.ContractIDs) == 0 {
			return nil, authz.ErrForbidden
		}
	}
	if job.ContractIDs == nil {
		job.ContractIDs = []string{}
	}

	if err := s.Queue.Push(ctx, job, s.JobTTL); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("job_id", job.ID).
		Str("user_id", actorID).
		Bool("all", job.All).
		Int("contracts", len(job.ContractIDs)).
		Msg("export queued")
	return job, nil
}

// Status returns a job to its owner
func (s *ExportService) Status(ctx context.Context, actorID, jobID string) (*ExportJob, error) {
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != actorID {
		return nil, authz.ErrForbidden
	}
	return job, nil
}

// Download returns the CSV of a finished job to its owner
func (s *ExportService) Download(ctx context.Context, actorID, jobID string) (*ExportJob, []byte, error) {
	job, err := s.Status(ctx, actorID, jobID)
	if err != nil {
		return nil, nil, err
	}
	if job.Status != ExportDone {
		return nil, nil, fmt.Errorf("%w: export is %s", authz.ErrConflict, job.Status)
	}
	data, err := s.Store.Get(ctx, job.FileName())
	if err != nil {
		return nil, nil, err
	}
	return job, data, nil
}

// Claim loads a queued job and marks it running
func (s *ExportService) Claim(ctx context.Context, jobID string) (*ExportJob, error) {
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job.Status = ExportRunning
	if err := s.save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Finish records the outcome of a job
func (s *ExportService) Finish(ctx context.Context, job *ExportJob, location string, jobErr error) error {
	finished := s.now().UTC()
	job.FinishedAt = &finished
	if jobErr != nil {
		job.Status = ExportFailed
		job.Error = jobErr.Error()
	} else {
		job.Status = ExportDone
		job.Location = location
	}
	return s.save(ctx, job)
}

func (s *ExportService) save(ctx context.Context, job *ExportJob) error {
	err := s.Queue.Save(ctx, job)
	if errors.Is(err, errJobMissing) {
		return ErrExportNotFound
	}
	return err
}

func (s *ExportService) load(ctx context.Context, jobID string) (*ExportJob, error) {
	job, err := s.Queue.Load(ctx, jobID)
	if err != nil {
		if errors.Is(err, errJobMissing) {
			return nil, ErrExportNotFound
		}
		return nil, err
	}
	return job, nil
}
