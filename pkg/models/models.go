package models

import (
	"time"
)

// TimeWindow is a half-open usage interval [Start, End).
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the whole number of days spanned by the window
func (w TimeWindow) Days() int {
	return int(w.End.Sub(w.Start).Hours() / 24)
}

// UsageRow is one grouped line of the usage summary response.
// ComputedAmount is nil when the service returned no cost for the group.
type UsageRow struct {
	Region          string   `json:"region"`
	CompartmentPath string   `json:"compartment_path"`
	SkuPartNumber   string   `json:"sku_part_number"`
	SkuName         string   `json:"sku_name"`
	ComputedAmount  *float32 `json:"computed_amount"`
}

// ReportRun records the outcome of a single report run
type ReportRun struct {
	ID          int64     `json:"id"`
	RunAt       time.Time `json:"run_at"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	TenancyID   string    `json:"tenancy_id"`
	FileName    string    `json:"file_name"`
	RowsWritten int       `json:"rows_written"`
	RowsSkipped int       `json:"rows_skipped"`
	TotalCost   string    `json:"total_cost"`
	Partial     bool      `json:"partial"`
	QueryError  string    `json:"query_error"`
	Uploaded    bool      `json:"uploaded"`
}

// Config represents the application configuration
type Config struct {
	Bucket      string `yaml:"bucket"`
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
	S3Region    string `yaml:"s3_region"`
	DBPath      string `yaml:"db_path"`
	Proxy       string `yaml:"proxy"`
}
