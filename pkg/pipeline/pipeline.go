// Package pipeline runs one report: validate the window, resolve
// credentials, query usage, write the CSV and upload it. Each stage
// finishes before the next starts.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/thannaske/ocicost/pkg/auth"
	"github.com/thannaske/ocicost/pkg/daterange"
	"github.com/thannaske/ocicost/pkg/models"
	"github.com/thannaske/ocicost/pkg/report"
	"github.com/thannaske/ocicost/pkg/usage"
)

// Resolver produces the signing context for a run.
type Resolver interface {
	Resolve(ctx context.Context, mode auth.Mode) (*auth.Context, error)
}

// Uploader hands the finished report to object storage.
type Uploader interface {
	Upload(ctx context.Context, path, bucket, objectName string) bool
}

// History records finished runs.
type History interface {
	StoreRun(run models.ReportRun) (int64, error)
}

// Params are the per-run inputs.
type Params struct {
	Mode             auth.Mode
	Dates            daterange.Input
	CompartmentDepth float32
	Rounding         report.Rounding
	OutputDir        string
	Bucket           string
}

// Outcome describes a completed run.
type Outcome struct {
	Window   models.TimeWindow
	Auth     *auth.Context
	File     string
	Summary  report.Summary
	Partial  bool
	QueryErr error
	Uploaded bool
}

// Pipeline holds the collaborators of a run. Uploader and History are
// optional.
type Pipeline struct {
	Resolver       Resolver
	NewUsageClient func(*auth.Context) (usage.Client, error)
	Uploader       Uploader
	History        History
	Log            logrus.FieldLogger
	Now            func() time.Time
}

// Run executes the stages in order. Validation, credential and report write
// failures are returned; usage query and upload failures are logged and
// reflected in the Outcome.
func (p *Pipeline) Run(ctx context.Context, params Params) (*Outcome, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	window, err := daterange.Resolve(params.Dates, now())
	if err != nil {
		return nil, err
	}
	log := p.Log.WithFields(logrus.Fields{
		"from": window.Start.Format(daterange.Layout),
		"to":   window.End.Format(daterange.Layout),
	})

	actx, err := p.Resolver.Resolve(ctx, params.Mode)
	if err != nil {
		return nil, fmt.Errorf("error fetching tenant information: %w", err)
	}
	log = log.WithFields(logrus.Fields{"tenancy": actx.TenancyID, "region": actx.Region})

	client, err := p.NewUsageClient(actx)
	if err != nil {
		return nil, fmt.Errorf("failed to create usage client: %w", err)
	}

	log.Info("requesting usage summary")
	result := usage.NewExecutor(client, log).Execute(ctx, usage.Query{
		TenantID:         actx.TenancyID,
		CompartmentDepth: params.CompartmentDepth,
		Window:           window,
	})
	if result.Partial {
		log.WithField("rows", len(result.Rows)).Warn("usage query did not complete, report holds partial data")
	}

	out := &Outcome{
		Window:   window,
		Auth:     actx,
		File:     filepath.Join(params.OutputDir, report.FileName(window)),
		Partial:  result.Partial,
		QueryErr: result.Err,
	}

	out.Summary, err = report.NewGenerator(params.Rounding, log).Generate(out.File, result.Rows)
	if err != nil {
		return nil, fmt.Errorf("error generating report: %w", err)
	}

	if p.Uploader != nil {
		out.Uploaded = p.Uploader.Upload(ctx, out.File, params.Bucket, "")
	}

	if p.History != nil {
		p.record(log, now(), out)
	}
	return out, nil
}

func (p *Pipeline) record(log logrus.FieldLogger, at time.Time, out *Outcome) {
	run := models.ReportRun{
		RunAt:       at,
		WindowStart: out.Window.Start,
		WindowEnd:   out.Window.End,
		TenancyID:   out.Auth.TenancyID,
		FileName:    filepath.Base(out.File),
		RowsWritten: out.Summary.Written,
		RowsSkipped: out.Summary.Skipped,
		TotalCost:   out.Summary.Total.StringFixed(2),
		Partial:     out.Partial,
		Uploaded:    out.Uploaded,
	}
	if out.QueryErr != nil {
		run.QueryError = out.QueryErr.Error()
	}
	if _, err := p.History.StoreRun(run); err != nil {
		log.WithError(err).Warn("failed to record run history")
	}
}
