package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/oracle/oci-go-sdk/v65/usageapi"
	"github.com/spf13/cobra"
	"github.com/thannaske/ocicost/pkg/auth"
	"github.com/thannaske/ocicost/pkg/daterange"
	"github.com/thannaske/ocicost/pkg/objectstore"
	"github.com/thannaske/ocicost/pkg/pipeline"
	"github.com/thannaske/ocicost/pkg/report"
	"github.com/thannaske/ocicost/pkg/usage"
)

var (
	ociConfigFile        string
	ociProfile           string
	useInstancePrincipal bool
	useDelegationToken   bool
	compartmentDepth     float32
	dateStart            string
	dateEnd              string
	days                 int
	reportType           string
	rounding             string
	outputDir            string
	noUpload             bool
)

// reportTypes are the accepted -report values; only PRODUCT has its own report
var reportTypes = map[string]bool{"PRODUCT": true, "DAILY": true, "REGION": true, "ALL": true}

func runReport(cmd *cobra.Command, args []string) error {
	rt := strings.ToUpper(reportType)
	if !reportTypes[rt] {
		return fmt.Errorf("unknown report type %q (want PRODUCT, DAILY, REGION or ALL)", reportType)
	}
	if rt != "PRODUCT" {
		logger.WithField("report", rt).Warn("only the PRODUCT report is available, generating it")
	}

	mode, err := authMode()
	if err != nil {
		return err
	}
	dates, err := dateInput(cmd)
	if err != nil {
		return err
	}
	roundingMode, err := report.ParseRounding(rounding)
	if err != nil {
		return err
	}

	proxy, err := auth.ParseProxy(config.Proxy)
	if err != nil {
		return err
	}

	p := &pipeline.Pipeline{
		Resolver: auth.NewResolver(logger, proxy),
		NewUsageClient: func(actx *auth.Context) (usage.Client, error) {
			client, err := usageapi.NewUsageapiClientWithConfigurationProvider(actx.Provider)
			if err != nil {
				return nil, err
			}
			auth.UseProxy(&client.BaseClient, proxy)
			return client, nil
		},
		Log: logger,
		Now: time.Now,
	}

	if !noUpload {
		s3Client, err := objectstore.NewS3Client(cmd.Context(), config)
		if err != nil {
			logger.WithError(err).Error("object storage unavailable, report will not be uploaded")
		} else {
			p.Uploader = objectstore.NewUploader(s3Client, logger)
		}
	}

	if database := openHistory(); database != nil {
		defer database.Close()
		p.History = database
	}

	out, err := p.Run(cmd.Context(), pipeline.Params{
		Mode:             mode,
		Dates:            dates,
		CompartmentDepth: compartmentDepth,
		Rounding:         roundingMode,
		OutputDir:        outputDir,
		Bucket:           config.Bucket,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Report %s: %d rows, %d skipped, total %s\n",
		out.File, out.Summary.Written, out.Summary.Skipped, out.Summary.Total.StringFixed(2))
	if out.Partial {
		fmt.Println("Warning: usage query did not complete, the report may be incomplete.")
	}
	switch {
	case noUpload:
	case out.Uploaded:
		fmt.Printf("Uploaded to bucket %s.\n", config.Bucket)
	default:
		fmt.Printf("Upload to bucket %s failed, the report was kept locally.\n", config.Bucket)
	}
	return nil
}

// authMode maps the authentication flags onto an auth.Mode
func authMode() (auth.Mode, error) {
	switch {
	case useInstancePrincipal && useDelegationToken:
		return nil, fmt.Errorf("-ip and -dt are mutually exclusive")
	case useInstancePrincipal:
		return auth.InstancePrincipal{}, nil
	case useDelegationToken:
		return auth.DelegationToken{}, nil
	default:
		return auth.ConfigFile{Path: ociConfigFile, Profile: ociProfile}, nil
	}
}

// dateInput collects the date flags that were given
func dateInput(cmd *cobra.Command) (daterange.Input, error) {
	var in daterange.Input
	if dateStart != "" {
		t, err := daterange.ParseDate(dateStart)
		if err != nil {
			return in, err
		}
		in.Start = &t
	}
	if dateEnd != "" {
		t, err := daterange.ParseDate(dateEnd)
		if err != nil {
			return in, err
		}
		in.End = &t
	}
	if cmd.Flags().Changed("days") {
		d := days
		in.Days = &d
	}
	return in, nil
}

func init() {
	rootCmd.RunE = runReport

	// Add flags to the report command
	flags := rootCmd.Flags()
	flags.StringVarP(&ociConfigFile, "oci-config", "c", "", "OCI CLI config file (default ~/.oci/config)")
	flags.StringVarP(&ociProfile, "profile", "t", "", "config profile inside the config file (default DEFAULT)")
	flags.StringVarP(&config.Proxy, "proxy", "p", "", "set proxy (i.e. www-proxy-server.com:80)")
	flags.BoolVar(&useInstancePrincipal, "ip", false, "use instance principals for authentication")
	flags.BoolVar(&useDelegationToken, "dt", false, "use delegation token for authentication (reads OCI_CONFIG_FILE and OCI_CONFIG_PROFILE)")
	flags.Float32Var(&compartmentDepth, "cd", 3, "maximum compartment depth")
	flags.StringVar(&dateStart, "ds", "", "start date, format YYYY-MM-DD (default first day of previous month)")
	flags.StringVar(&dateEnd, "de", "", "end date, format YYYY-MM-DD, not inclusive (default last day of previous month)")
	flags.IntVar(&days, "days", 0, "days added to the start date (-de is ignored if specified)")
	flags.StringVar(&reportType, "report", "PRODUCT", "report type: PRODUCT, DAILY, REGION or ALL")
	flags.StringVar(&rounding, "rounding", "half-up", "cost rounding: half-up or half-even")
	flags.StringVar(&outputDir, "output-dir", ".", "directory the report is written to")
	flags.BoolVar(&noUpload, "no-upload", false, "write the report without uploading it")
	rootCmd.MarkFlagsMutuallyExclusive("ip", "dt")
}
