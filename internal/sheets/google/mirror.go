package google

import (
	"sort"
	"strconv"
	"strings"
	"time"

	gsheet "google.golang.org/api/sheets/v4"

	"finanzas/internal/core"
	"finanzas/internal/export"
)

type mirrorPlan struct {
	add   []string             // tabs to create
	clear []string             // A1 ranges to wipe
	data  []*gsheet.ValueRange // new contents
}

// tabTitle is the tab name of a month bucket.
func tabTitle(prefix string, p core.Period) string {
	return prefix + p.SheetName()
}

// parseTabTitle recognises tabs written by this package.
func parseTabTitle(prefix, title string) (core.Period, bool) {
	rest, ok := strings.CutPrefix(title, prefix)
	if !ok || len(rest) != len("MM-YYYY") || rest[2] != '-' {
		return core.Period{}, false
	}
	month, err := strconv.Atoi(rest[:2])
	if err != nil {
		return core.Period{}, false
	}
	year, err := strconv.Atoi(rest[3:])
	if err != nil {
		return core.Period{}, false
	}
	p, err := core.MonthPeriod(year, month)
	if err != nil {
		return core.Period{}, false
	}
	return p, true
}

// a1 quotes a sheet title for use in an A1 range.
func a1(title, cells string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + cells
}

func planMirror(existing []string, prefix string, year int, sheets []export.Sheet, loc *time.Location) mirrorPlan {
	have := make(map[string]bool, len(existing))
	var plan mirrorPlan
	clear := map[string]bool{}
	for _, title := range existing {
		have[title] = true
		if p, ok := parseTabTitle(prefix, title); ok && p.Year == year {
			clear[title] = true
		}
	}
	for _, sh := range sheets {
		title := tabTitle(prefix, sh.Period)
		if !have[title] {
			plan.add = append(plan.add, title)
		}
		clear[title] = true
		plan.data = append(plan.data, &gsheet.ValueRange{
			Range:  a1(title, "A1"),
			Values: sh.Values(loc),
		})
	}
	for title := range clear {
		plan.clear = append(plan.clear, a1(title, "A:Z"))
	}
	sort.Strings(plan.clear)
	return plan
}
