package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ironsheep/shoreline-batch/internal/pipeline"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	statusStyle = map[pipeline.Status]lipgloss.Style{
		pipeline.StatusExported:    lipgloss.NewStyle().Foreground(lipgloss.Color("#1a9850")),
		pipeline.StatusUnavailable: lipgloss.NewStyle().Foreground(lipgloss.Color("#fdae61")),
		pipeline.StatusNoImagery:   lipgloss.NewStyle().Foreground(lipgloss.Color("#d73027")),
	}
)

var reportHeaders = []string{"REGION", "STATUS", "IMAGES", "KEPT", "ROWS", "CLOUD", "ACC", "OUTPUT"}

// renderReport formats a run report as a table followed by a summary.
func renderReport(r *pipeline.Report) string {
	rows := make([][]string, 0, len(r.Regions))
	for _, res := range r.Regions {
		row := []string{res.SiteName, string(res.Status), "-", "-", "-", "-", "-", "-"}
		if res.Status == pipeline.StatusExported {
			row[2] = fmt.Sprint(res.Images)
			row[3] = fmt.Sprint(res.Shorelines)
			row[4] = fmt.Sprint(res.Rows)
			row[5] = fmt.Sprintf("%.0f%%", res.MeanCloudCover*100)
			row[6] = fmt.Sprintf("%.1fm", res.MeanGeoAccuracy)
			row[7] = filepath.Base(res.Output)
		}
		rows = append(rows, row)
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Run " + r.RunID))
	sb.WriteString("\n")
	if len(rows) > 0 {
		sb.WriteString(renderTable(reportHeaders, rows))
	}

	fmt.Fprintf(&sb, "regions: %d exported, %d unavailable, %d without imagery; %d rows\n",
		r.Count(pipeline.StatusExported), r.Count(pipeline.StatusUnavailable),
		r.Count(pipeline.StatusNoImagery), r.Rows())
	fmt.Fprintf(&sb, "run dir: %s\n", r.RunDir)
	if r.Archive != "" {
		fmt.Fprintf(&sb, "archive: %s\n", r.Archive)
	}
	if r.Published != "" {
		fmt.Fprintf(&sb, "published: %s\n", r.Published)
	}
	if !r.Finished.IsZero() {
		sb.WriteString(mutedStyle.Render("elapsed " + r.Finished.Sub(r.Started).Round(time.Millisecond).String()))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}
	// Width includes padding.
	total := len(headers) - 1
	for i := range widths {
		widths[i] += 2
		total += widths[i]
	}

	sep := mutedStyle.Render("|")
	var sb strings.Builder
	for i, h := range headers {
		sb.WriteString(headerStyle.Width(widths[i]).Render(h))
		if i < len(headers)-1 {
			sb.WriteString(sep)
		}
	}
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")

	for _, row := range rows {
		for i, cell := range row {
			style := cellStyle
			if i == 1 {
				if s, ok := statusStyle[pipeline.Status(cell)]; ok {
					style = s.Padding(0, 1)
				}
			}
			sb.WriteString(style.Width(widths[i]).Render(cell))
			if i < len(row)-1 {
				sb.WriteString(sep)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
