package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/usageapi"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thannaske/ocicost/pkg/auth"
	"github.com/thannaske/ocicost/pkg/daterange"
	"github.com/thannaske/ocicost/pkg/models"
	"github.com/thannaske/ocicost/pkg/usage"
)

var now = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

type fakeResolver struct {
	calls int
	ctx   *auth.Context
	err   error
}

func (f *fakeResolver) Resolve(ctx context.Context, mode auth.Mode) (*auth.Context, error) {
	f.calls++
	return f.ctx, f.err
}

type fakeUsageClient struct {
	resp usageapi.RequestSummarizedUsagesResponse
	err  error
}

func (f *fakeUsageClient) RequestSummarizedUsages(ctx context.Context, request usageapi.RequestSummarizedUsagesRequest) (usageapi.RequestSummarizedUsagesResponse, error) {
	return f.resp, f.err
}

type fakeUploader struct {
	ok     bool
	path   string
	bucket string
}

func (f *fakeUploader) Upload(ctx context.Context, path, bucket, objectName string) bool {
	f.path, f.bucket = path, bucket
	return f.ok
}

type fakeHistory struct {
	runs []models.ReportRun
}

func (f *fakeHistory) StoreRun(run models.ReportRun) (int64, error) {
	f.runs = append(f.runs, run)
	return int64(len(f.runs)), nil
}

func newPipeline(t *testing.T, client usage.Client, up *fakeUploader, hist *fakeHistory) (*Pipeline, *fakeResolver) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	res := &fakeResolver{ctx: &auth.Context{Region: "us-ashburn-1", TenancyID: "ocid1.tenancy.oc1..aaaa"}}
	p := &Pipeline{
		Resolver:       res,
		NewUsageClient: func(*auth.Context) (usage.Client, error) { return client, nil },
		Log:            logger,
		Now:            func() time.Time { return now },
	}
	if up != nil {
		p.Uploader = up
	}
	if hist != nil {
		p.History = hist
	}
	return p, res
}

func params(t *testing.T) Params {
	start, err := daterange.ParseDate("2024-02-01")
	require.NoError(t, err)
	days := 29
	return Params{
		Mode:             auth.ConfigFile{},
		Dates:            daterange.Input{Start: &start, Days: &days},
		CompartmentDepth: 3,
		OutputDir:        t.TempDir(),
		Bucket:           "usage-from-oci",
	}
}

func TestRunWritesAndUploads(t *testing.T) {
	client := &fakeUsageClient{resp: usageapi.RequestSummarizedUsagesResponse{UsageAggregation: usageapi.UsageAggregation{Items: []usageapi.UsageSummary{{
		Region:          common.String("us-ashburn-1"),
		CompartmentPath: common.String("/root/dev"),
		SkuPartNumber:   common.String("B12345"),
		SkuName:         common.String("Compute"),
		ComputedAmount:  common.Float32(12.3456),
	}}}}}
	up := &fakeUploader{ok: true}
	hist := &fakeHistory{}
	p, _ := newPipeline(t, client, up, hist)
	prm := params(t)

	out, err := p.Run(context.Background(), prm)
	require.NoError(t, err)
	assert.True(t, out.Uploaded)
	assert.False(t, out.Partial)
	assert.Equal(t, 1, out.Summary.Written)
	assert.Equal(t, out.File, up.path)
	assert.Equal(t, "usage-from-oci", up.bucket)
	assert.Contains(t, out.File, "oci_usage_from_2024-02-01_to_2024-03-01.csv")

	b, err := os.ReadFile(out.File)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"Oracle","us-ashburn-1","/root/dev","B12345 Compute","12.35"`)

	require.Len(t, hist.runs, 1)
	assert.Equal(t, "oci_usage_from_2024-02-01_to_2024-03-01.csv", hist.runs[0].FileName)
	assert.Equal(t, "12.35", hist.runs[0].TotalCost)
	assert.True(t, hist.runs[0].Uploaded)
}

func TestRunValidationFailsBeforeResolving(t *testing.T) {
	p, res := newPipeline(t, &fakeUsageClient{}, nil, nil)
	prm := params(t)
	days := 120
	prm.Dates.Days = &days

	_, err := p.Run(context.Background(), prm)
	assert.ErrorIs(t, err, daterange.ErrRangeTooLarge)
	assert.Zero(t, res.calls)
}

func TestRunResolverErrorIsFatal(t *testing.T) {
	p, res := newPipeline(t, &fakeUsageClient{}, nil, nil)
	res.err = auth.ErrNoHomeRegion

	_, err := p.Run(context.Background(), params(t))
	assert.ErrorIs(t, err, auth.ErrNoHomeRegion)
	assert.Contains(t, err.Error(), "error fetching tenant information")
}

func TestRunQueryFailureStillWritesReport(t *testing.T) {
	up := &fakeUploader{ok: true}
	hist := &fakeHistory{}
	p, _ := newPipeline(t, &fakeUsageClient{err: errors.New("InternalServerError")}, up, hist)

	out, err := p.Run(context.Background(), params(t))
	require.NoError(t, err)
	assert.True(t, out.Partial)
	assert.Error(t, out.QueryErr)
	assert.Zero(t, out.Summary.Written)

	b, err := os.ReadFile(out.File)
	require.NoError(t, err)
	assert.Equal(t, `"Vendor","Region","Tier","Product","Day","Cost"`+"\n", string(b))

	require.Len(t, hist.runs, 1)
	assert.True(t, hist.runs[0].Partial)
	assert.Equal(t, "InternalServerError", hist.runs[0].QueryError)
}

func TestRunUploadFailureIsNotAnError(t *testing.T) {
	up := &fakeUploader{ok: false}
	p, _ := newPipeline(t, &fakeUsageClient{}, up, nil)

	out, err := p.Run(context.Background(), params(t))
	require.NoError(t, err)
	assert.False(t, out.Uploaded)
	_, err = os.Stat(out.File)
	assert.NoError(t, err)
}
