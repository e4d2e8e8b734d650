// Package output renders pipeline results for humans and machines.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"iac-pipeline/core/catalog"
	"iac-pipeline/core/determinism"
	"iac-pipeline/core/types"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable CLI table
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"

	// FormatMarkdown is a markdown report, used for PR comments
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported formats
var Formats = []Format{FormatCLI, FormatJSON, FormatMarkdown}

// Report is everything one pipeline invocation has to show.
// Decision and Record are nil for stages that did not reach them.
type Report struct {
	Catalog  *types.CostCatalog
	Decision *types.Decision
	Record   *types.DeploymentRecord
}

// Formatter produces output in a specific format
type Formatter interface {
	Format() Format
	Render(w io.Writer, report *Report) error
}

// ForFormat returns the formatter for f
func ForFormat(f Format) (Formatter, error) {
	switch f {
	case FormatCLI, "":
		return &TableFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	case FormatMarkdown:
		return &MarkdownFormatter{}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (want one of %v)", f, Formats)
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	winColor    = color.New(color.FgGreen, color.Bold)
	overColor   = color.New(color.FgRed, color.Bold)
	dimColor    = color.New(color.FgHiBlack)
)

const rule = "─────────────────────────────────────────────────────────────────"

// TableFormatter renders a coloured CLI table
type TableFormatter struct{}

// Format returns FormatCLI
func (f *TableFormatter) Format() Format { return FormatCLI }

// Render writes the catalog, then the decision and deployment if present
func (f *TableFormatter) Render(w io.Writer, r *Report) error {
	if r.Catalog != nil {
		headerColor.Fprintln(w, "COST CATALOG")
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%-36s %14s %10s\n", "VARIANT", "MONTHLY (EUR)", "RESOURCES")
		fmt.Fprintln(w, rule)

		for _, v := range r.Catalog.Variants() {
			line := fmt.Sprintf("%-36s %14s %10d", truncate(string(v.Name), 36),
				v.MonthlyCost.StringFixed(types.CostPlaces), len(v.Resources))
			switch {
			case r.Decision != nil && r.Decision.CheapestVM.Name == v.Name:
				fmt.Fprintln(w, line+"  "+winColor.Sprint("← cheapest vm"))
			case types.InGroup(v.Name, types.GroupPaaS):
				dimColor.Fprintln(w, line)
			default:
				fmt.Fprintln(w, line)
			}
		}

		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%-36s %14s\n", "PaaS aggregate", paasTotal(r.Catalog.PaaSAggregateCost()))
		fmt.Fprintln(w)
	}

	if r.Decision != nil {
		d := r.Decision
		headerColor.Fprintln(w, "DECISION")
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Scenario:     %s\n", d.Scenario)
		fmt.Fprintf(w, "Chosen:       %s\n", d.Chosen())
		fmt.Fprintf(w, "Monthly cost: %s EUR\n", d.ChosenCost.StringFixed(types.CostPlaces))
		fmt.Fprintf(w, "Budget:       %s EUR\n", d.BudgetEUR.StringFixed(types.CostPlaces))
		if d.WithinBudget {
			winColor.Fprintln(w, "✓ within budget")
		} else {
			overColor.Fprintln(w, "✗ over budget, nothing will be provisioned")
		}
		fmt.Fprintln(w)
	}

	if r.Record != nil {
		headerColor.Fprintln(w, "DEPLOYMENT")
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "ID:      %s\n", r.Record.DeploymentID())
		outputs := r.Record.Outputs()
		for _, k := range determinism.SortedKeys(outputs) {
			fmt.Fprintf(w, "%-8s %s\n", k+":", outputs[k])
		}
		winColor.Fprintln(w, r.Record.Message())
	}
	return nil
}

// MarkdownFormatter renders the PR comment body
type MarkdownFormatter struct{}

// Format returns FormatMarkdown
func (f *MarkdownFormatter) Format() Format { return FormatMarkdown }

// Render writes a markdown summary
func (f *MarkdownFormatter) Render(w io.Writer, r *Report) error {
	fmt.Fprintln(w, "## Infrastructure cost selection")
	fmt.Fprintln(w)

	if r.Decision != nil {
		d := r.Decision
		status := "✅ within budget"
		if !d.WithinBudget {
			status = "❌ over budget"
		}
		fmt.Fprintf(w, "**Scenario:** `%s` · **Chosen:** `%s` · **Monthly cost:** %s EUR · **Budget:** %s EUR · %s\n",
			d.Scenario, d.Chosen(), d.ChosenCost.StringFixed(types.CostPlaces),
			d.BudgetEUR.StringFixed(types.CostPlaces), status)
		fmt.Fprintln(w)
	}

	if r.Catalog != nil {
		fmt.Fprintln(w, "| Variant | Monthly cost (EUR) | Resources |")
		fmt.Fprintln(w, "|---------|-------------------:|----------:|")
		for _, v := range r.Catalog.Variants() {
			name := fmt.Sprintf("`%s`", v.Name)
			if r.Decision != nil && r.Decision.CheapestVM.Name == v.Name {
				name = "**" + name + "**"
			}
			fmt.Fprintf(w, "| %s | %s | %d |\n", name, v.MonthlyCost.StringFixed(types.CostPlaces), len(v.Resources))
		}
		fmt.Fprintf(w, "| PaaS aggregate | %s | |\n", paasTotal(r.Catalog.PaaSAggregateCost()))
		fmt.Fprintln(w)
	}

	if r.Record != nil {
		fmt.Fprintf(w, "Deployment `%s`: %s\n", r.Record.DeploymentID(), r.Record.Message())
	}
	return nil
}

// JSONFormatter renders the machine-readable artifacts
type JSONFormatter struct{}

// Format returns FormatJSON
func (f *JSONFormatter) Format() Format { return FormatJSON }

// Render writes the most complete artifact the report holds
func (f *JSONFormatter) Render(w io.Writer, r *Report) error {
	var (
		data []byte
		err  error
	)
	switch {
	case r.Record != nil:
		data, err = EncodeDeployment(r.Record)
	case r.Decision != nil:
		data, err = EncodeDecision(*r.Decision)
	case r.Catalog != nil:
		data, err = catalog.Encode(r.Catalog)
	default:
		data = []byte("{}\n")
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func paasTotal(n decimal.NullDecimal) string {
	if !n.Valid {
		return "unpriced"
	}
	return n.Decimal.StringFixed(types.CostPlaces)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func marshal(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
