package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rm-hull/near-expiry-food/internal/models"
)

// Text writes a plain report listing every item of every store.
func Text(w io.Writer, resp *models.SearchResponse) error {
	bw := bufio.NewWriter(w)
	rule := strings.Repeat("=", 80)

	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw, "Near-expiry food report")
	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "Location: %s\n", describeLocation(resp.Location))
	fmt.Fprintf(bw, "Radius:   %.0f m\n", resp.Settings.RadiusMeters)
	fmt.Fprintf(bw, "Queried:  %s\n", resp.QueryTime.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(bw, "Query ID: %s\n\n", resp.QueryID)

	for _, status := range resp.Sources {
		if status.OK {
			fmt.Fprintf(bw, "%s: %d stores\n", status.Brand, status.Count)
		} else {
			fmt.Fprintf(bw, "%s: failed: %s\n", status.Brand, status.Error)
		}
	}

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, strings.Repeat("-", 80))

	if len(resp.Stores) == 0 {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, "No near-expiry food nearby")
	}

	for i, store := range resp.Stores {
		fmt.Fprintf(bw, "\n%d. [%s] %s\n", i+1, store.Brand, store.StoreName)
		fmt.Fprintf(bw, "   %.0f m | %d items\n", store.DistanceMeters, store.TotalQuantity)
		if store.Address != "" {
			fmt.Fprintf(bw, "   Address: %s\n", store.Address)
		}
		if store.Phone != "" {
			fmt.Fprintf(bw, "   Phone: %s\n", store.Phone)
		}
		if len(store.Items) > 0 {
			fmt.Fprintln(bw, "   Items:")
			for _, item := range store.Items {
				fmt.Fprintf(bw, "     - %s: %d\n", item.Name, item.Quantity)
			}
		}
	}

	return bw.Flush()
}
