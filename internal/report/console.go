// Package report renders a search response for people: a styled console
// summary plus optional text, JSON and HTML files.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rm-hull/near-expiry-food/internal/brands"
	"github.com/rm-hull/near-expiry-food/internal/models"
	"github.com/rm-hull/near-expiry-food/internal/stats"
)

// ConsoleItems is how many items are listed per store before eliding the rest.
const ConsoleItems = 5

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4")).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	emptyStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("214"))
	storeStyle  = lipgloss.NewStyle().Bold(true)
	indentStyle = lipgloss.NewStyle().PaddingLeft(3)
)

func brandTag(source models.SourceID, label string) string {
	brand := brands.Lookup(source)
	if label == "" {
		label = brand.Label
	}
	style := lipgloss.NewStyle().Bold(true)
	if brand.Colour != nil {
		style = style.Foreground(lipgloss.Color(*brand.Colour))
	}
	return style.Render("[" + label + "]")
}

// Console writes a human-readable summary of resp to w.
func Console(w io.Writer, resp *models.SearchResponse) error {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Near-expiry food search"))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "%s %s\n", labelStyle.Render("Location:"), describeLocation(resp.Location))
	fmt.Fprintf(&sb, "%s within %.0f m, up to %d per source\n",
		labelStyle.Render("Radius:  "), resp.Settings.RadiusMeters, resp.Settings.LimitPerSource)
	fmt.Fprintf(&sb, "%s %s\n\n", labelStyle.Render("Queried: "), resp.QueryTime.Format("2006-01-02 15:04:05"))

	for _, status := range resp.Sources {
		sb.WriteString(statusLine(status))
		sb.WriteString("\n")
	}
	if len(resp.Sources) > 0 {
		sb.WriteString("\n")
	}

	if len(resp.Stores) == 0 {
		sb.WriteString(emptyStyle.Render("No near-expiry food nearby"))
		sb.WriteString("\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}

	fmt.Fprintf(&sb, "Found %d stores with near-expiry food:\n\n", len(resp.Stores))
	for i, store := range resp.Stores {
		writeStore(&sb, i+1, store)
	}

	if resp.Statistics != nil {
		writeStatistics(&sb, resp.Statistics)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func statusLine(status models.SourceStatus) string {
	label := status.Brand
	if label == "" {
		label = brands.Label(status.Source)
	}
	if status.OK {
		return okStyle.Render(fmt.Sprintf("✔ %s: %d stores", label, status.Count))
	}
	return failStyle.Render(fmt.Sprintf("✘ %s: %s", label, status.Error))
}

func writeStore(sb *strings.Builder, n int, store models.Store) {
	fmt.Fprintf(sb, "%d. %s %s\n", n, brandTag(store.Source, store.Brand), storeStyle.Render(store.StoreName))

	var lines []string
	lines = append(lines, fmt.Sprintf("%.0f m | %d items", store.DistanceMeters, store.TotalQuantity))
	if store.Address != "" {
		lines = append(lines, "Address: "+store.Address)
	}
	if len(store.Categories) > 0 {
		lines = append(lines, "Categories: "+formatCategories(store.Categories))
	}
	for i, item := range store.Items {
		if i == ConsoleItems {
			lines = append(lines, fmt.Sprintf("  ... %d more", len(store.Items)-ConsoleItems))
			break
		}
		lines = append(lines, fmt.Sprintf("  - %s: %d", item.Name, item.Quantity))
	}

	sb.WriteString(indentStyle.Render(strings.Join(lines, "\n")))
	sb.WriteString("\n\n")
}

func writeStatistics(sb *strings.Builder, s *models.SearchStatistics) {
	sb.WriteString(labelStyle.Render("Distance:"))
	for _, bucket := range stats.BucketOrder(s.DistanceBuckets) {
		fmt.Fprintf(sb, " %s m (%d)", bucket, s.DistanceBuckets[bucket])
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "%s %d items across %d stores\n", labelStyle.Render("Total:   "), s.TotalQuantity, s.TotalStores)
}

func formatCategories(categories []models.Category) string {
	parts := make([]string, 0, len(categories))
	for _, c := range categories {
		parts = append(parts, fmt.Sprintf("%s(%d)", c.Name, c.Quantity))
	}
	return strings.Join(parts, ", ")
}

func describeLocation(loc models.Location) string {
	coords := fmt.Sprintf("(%.6f, %.6f)", loc.Latitude, loc.Longitude)
	if loc.Description == "" {
		return coords
	}
	return loc.Description + " " + coords
}
