package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/showroom-assistant/internal/model"
	"github.com/sells-group/showroom-assistant/internal/store"
)

var printer = message.NewPrinter(language.English)

func money(v float64) string {
	if v <= 0 {
		return "-"
	}
	return printer.Sprintf("$%.0f", v)
}

// formatVehicles writes a tabular list of vehicles to out.
func formatVehicles(out io.Writer, vehicles []model.Vehicle) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STOCK\tVEHICLE\tBODY\tCOLOR\tPRICE")
	for _, v := range vehicles {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			v.StockNumber, v.Title(), dash(v.BodyStyle), dash(v.Color), money(v.Price))
	}
	_ = w.Flush()
}

// formatSessionsList writes a tabular list of sessions to out.
func formatSessionsList(out io.Writer, sessions []store.SessionSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCUSTOMER\tSTEP\tMESSAGES\tCREATED\tUPDATED")
	for _, s := range sessions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			truncateID(s.SessionID),
			dash(s.CustomerName),
			dash(s.CurrentStep),
			s.Messages,
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			s.UpdatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID shortens a UUID to its first 8 characters for display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
