// Package report writes usage rows as the flat per-product cost CSV.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/thannaske/ocicost/pkg/daterange"
	"github.com/thannaske/ocicost/pkg/models"
)

// Vendor is the constant first column of every row.
const Vendor = "Oracle"

// Header is the legacy header line. It names six columns while rows carry
// five: the compartment path lands under Tier and there is no Day value.
var Header = []string{"Vendor", "Region", "Tier", "Product", "Day", "Cost"}

// minAmount is the smallest cost that survives rounding to a cent.
var minAmount = decimal.New(5, -3)

// Rounding selects how costs are rounded to two decimals.
type Rounding int

const (
	// HalfUp rounds ties away from zero (1.005 -> 1.01).
	HalfUp Rounding = iota
	// HalfEven rounds ties to the even digit (1.005 -> 1.00).
	HalfEven
)

// ParseRounding maps a flag value onto a Rounding.
func ParseRounding(s string) (Rounding, error) {
	switch strings.ToLower(s) {
	case "", "half-up":
		return HalfUp, nil
	case "half-even", "bank":
		return HalfEven, nil
	}
	return HalfUp, fmt.Errorf("unknown rounding mode %q (want half-up or half-even)", s)
}

func (r Rounding) String() string {
	if r == HalfEven {
		return "half-even"
	}
	return "half-up"
}

func (r Rounding) round(d decimal.Decimal) decimal.Decimal {
	if r == HalfEven {
		return d.RoundBank(2)
	}
	return d.Round(2)
}

// FileName is the report file name for a window.
func FileName(w models.TimeWindow) string {
	return fmt.Sprintf("oci_usage_from_%s_to_%s.csv", w.Start.Format(daterange.Layout), w.End.Format(daterange.Layout))
}

// Summary counts what a Write produced.
type Summary struct {
	Written int
	Skipped int
	Total   decimal.Decimal
}

// Generator formats rows and writes report files.
type Generator struct {
	rounding Rounding
	log      logrus.FieldLogger
}

// NewGenerator returns a Generator using rounding for the Cost column.
func NewGenerator(rounding Rounding, log logrus.FieldLogger) *Generator {
	return &Generator{rounding: rounding, log: log}
}

// Generate creates (or truncates) path and writes the report into it.
func (g *Generator) Generate(path string, rows []models.UsageRow) (Summary, error) {
	f, err := os.Create(path)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to create report file: %w", err)
	}

	sum, err := g.Write(f, rows)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close report file: %w", cerr)
	}
	if err != nil {
		return sum, err
	}

	g.log.WithFields(logrus.Fields{
		"file":    path,
		"rows":    sum.Written,
		"skipped": sum.Skipped,
		"total":   sum.Total.StringFixed(2),
	}).Info("report written")
	return sum, nil
}

// Write writes the header and one line per billable row, in input order.
// Rows without an amount, or with an amount below half a cent, are skipped.
func (g *Generator) Write(w io.Writer, rows []models.UsageRow) (Summary, error) {
	bw := bufio.NewWriter(w)
	sum := Summary{Total: decimal.Zero}

	if _, err := bw.WriteString(formatLine(Header)); err != nil {
		return sum, fmt.Errorf("failed to write report header: %w", err)
	}

	for _, row := range rows {
		if row.ComputedAmount == nil {
			sum.Skipped++
			continue
		}
		amount := decimal.NewFromFloat32(*row.ComputedAmount)
		if amount.LessThan(minAmount) {
			sum.Skipped++
			continue
		}

		if _, err := bw.WriteString(g.FormatRow(row, amount)); err != nil {
			return sum, fmt.Errorf("failed to write report row: %w", err)
		}
		sum.Written++
		sum.Total = sum.Total.Add(amount)
	}

	if err := bw.Flush(); err != nil {
		return sum, fmt.Errorf("failed to write report: %w", err)
	}
	return sum, nil
}

// FormatRow renders one data line, newline included.
func (g *Generator) FormatRow(row models.UsageRow, amount decimal.Decimal) string {
	return formatLine([]string{
		Vendor,
		row.Region,
		row.CompartmentPath,
		row.SkuPartNumber + " " + row.SkuName,
		g.rounding.round(amount).StringFixed(2),
	})
}

// formatLine quotes every field and doubles embedded quotes.
func formatLine(fields []string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	return b.String()
}
