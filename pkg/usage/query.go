// Package usage builds the summarized usage request, executes it and maps
// the response into report rows.
package usage

import (
	"context"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/usageapi"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/thannaske/ocicost/pkg/models"
)

// GroupBy lists the dimensions every row is grouped by, in request order.
var GroupBy = []string{"region", "skuPartNumber", "skuName", "compartmentPath"}

// Query describes one summarized cost request.
type Query struct {
	TenantID         string
	CompartmentDepth float32
	Window           models.TimeWindow
}

// Details returns the request body for q: daily cost granularity grouped by
// GroupBy and aggregated over the whole window.
func (q Query) Details() usageapi.RequestSummarizedUsagesDetails {
	return usageapi.RequestSummarizedUsagesDetails{
		TenantId:          common.String(q.TenantID),
		TimeUsageStarted:  sdkTime(q.Window.Start),
		TimeUsageEnded:    sdkTime(q.Window.End),
		Granularity:       usageapi.RequestSummarizedUsagesDetailsGranularityDaily,
		QueryType:         usageapi.RequestSummarizedUsagesDetailsQueryTypeCost,
		IsAggregateByTime: common.Bool(true),
		GroupBy:           append([]string(nil), GroupBy...),
		CompartmentDepth:  common.Float32(q.CompartmentDepth),
	}
}

// sdkTime converts t to UTC whole seconds; the usage API rejects fractions.
func sdkTime(t time.Time) *common.SDKTime {
	return &common.SDKTime{Time: t.UTC().Truncate(time.Second)}
}

// Client is the part of usageapi.UsageapiClient used here.
type Client interface {
	RequestSummarizedUsages(ctx context.Context, request usageapi.RequestSummarizedUsagesRequest) (usageapi.RequestSummarizedUsagesResponse, error)
}

// Result is what the executor got back. Err is set, and Partial is true,
// when the query stopped on an error; Rows then holds whatever pages
// arrived before it.
type Result struct {
	Rows    []models.UsageRow
	Partial bool
	Soft    bool
	Err     error
}

// Executor runs usage queries with the SDK's default retry policy.
type Executor struct {
	client Client
	log    logrus.FieldLogger
}

// NewExecutor returns an Executor for client.
func NewExecutor(client Client, log logrus.FieldLogger) *Executor {
	return &Executor{client: client, log: log}
}

// Execute runs q, following pagination. Errors never escape: they are
// classified, logged, and reported through the Result.
func (e *Executor) Execute(ctx context.Context, q Query) Result {
	policy := common.DefaultRetryPolicy()
	req := usageapi.RequestSummarizedUsagesRequest{
		RequestSummarizedUsagesDetails: q.Details(),
		RequestMetadata:                common.RequestMetadata{RetryPolicy: &policy},
	}

	var res Result
	for {
		resp, err := e.client.RequestSummarizedUsages(ctx, req)
		if err != nil {
			res.Partial = true
			res.Err = err
			res.Soft = IsSoft(err)
			e.logFailure(err, res.Soft)
			return res
		}

		for _, item := range resp.Items {
			res.Rows = append(res.Rows, rowFromSummary(item))
		}

		if resp.OpcNextPage == nil || *resp.OpcNextPage == "" {
			break
		}
		req.Page = resp.OpcNextPage
	}

	e.log.WithField("rows", len(res.Rows)).Debug("usage query complete")
	return res
}

func (e *Executor) logFailure(err error, soft bool) {
	log := e.log.WithError(err)
	if se, ok := asServiceError(err); ok {
		log = log.WithFields(logrus.Fields{
			"code":        se.GetCode(),
			"status":      se.GetHTTPStatusCode(),
			"opc_request": se.GetOpcRequestID(),
		})
	}
	if soft {
		log.Debug("service error at usage query")
		return
	}
	log.Error("error at usage query")
}

func rowFromSummary(s usageapi.UsageSummary) models.UsageRow {
	return models.UsageRow{
		Region:          lo.FromPtr(s.Region),
		CompartmentPath: lo.FromPtr(s.CompartmentPath),
		SkuPartNumber:   lo.FromPtr(s.SkuPartNumber),
		SkuName:         lo.FromPtr(s.SkuName),
		ComputedAmount:  s.ComputedAmount,
	}
}
