package output

import (
	"fmt"

	"github.com/agentstation/courtsync/pkg/sync"
)

// StatisticsData lays out sync statistics one court per row, ordered by
// court id. Wide adds the rendered differences.
func StatisticsData(stats *sync.Statistics, wide bool) Data {
	d := Data{
		Headers:         []string{"Court", "Update Type", "Addresses +/~/-", "Phones +/~/-"},
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignRight},
	}
	if wide {
		d.Headers = append(d.Headers, "Differences")
		d.ColumnAlignment = append(d.ColumnAlignment, AlignLeft)
	}
	if stats == nil {
		return d
	}

	for _, c := range stats.Sorted() {
		row := []string{
			c.CourtID,
			string(c.UpdateType),
			fmt.Sprintf("%d/%d/%d", c.NumberAddressesInserted, c.NumberAddressesUpdated, c.NumberAddressesRemoved),
			fmt.Sprintf("%d/%d/%d", c.NumberPhonesInserted, c.NumberPhonesUpdated, c.NumberPhonesRemoved),
		}
		if wide {
			row = append(row, c.Differences)
		}
		d.Rows = append(d.Rows, row)
	}
	return d
}
