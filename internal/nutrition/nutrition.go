// Package nutrition derives nutrient totals from diet entries and compares
// them against the user's goals.
package nutrition

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/starford/berkana/internal/apperr"
	"github.com/starford/berkana/internal/models"
)

// Metric names a tracked nutrient as shown in charts.
type Metric string

const (
	Calories Metric = "Calories"
	Protein  Metric = "Protein"
	Fiber    Metric = "Fiber"
)

// Periods offered by the graph view, in days.
var Periods = []int{7, 30, 90}

// ParseMetric accepts a metric name case-insensitively. Empty means Calories.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "calories", "kcal":
		return Calories, nil
	case "protein":
		return Protein, nil
	case "fiber":
		return Fiber, nil
	}
	return "", fmt.Errorf("%w: unknown metric %q", apperr.ErrInvalid, s)
}

// Unit returns the display unit.
func (m Metric) Unit() string {
	if m == Calories {
		return "kcal"
	}
	return "g"
}

// Decimals returns how many decimal places values are shown with.
func (m Metric) Decimals() int {
	if m == Calories {
		return 0
	}
	return 1
}

func (m Metric) pick(kcal, protein, fiber float64) float64 {
	switch m {
	case Protein:
		return protein
	case Fiber:
		return fiber
	default:
		return kcal
	}
}

// Totals are summed nutrients for a set of entries.
type Totals struct {
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"protein"`
	Fiber   float64 `json:"fiber"`
}

// ComputeTotals sums the nutrients of every food entry. Legacy string items
// and anything else that is not an entry count as zero.
func ComputeTotals(items []models.DayItem) Totals {
	var t Totals
	for _, it := range items {
		if it.Food == nil {
			continue
		}
		t.Kcal += it.Food.Kcal
		t.Protein += it.Food.Protein
		t.Fiber += it.Food.Fiber
	}
	return t
}

// Readout is one metric's progress against its goal.
type Readout struct {
	Metric  Metric  `json:"metric"`
	Value   float64 `json:"value"`
	Goal    float64 `json:"goal"`
	Ratio   float64 `json:"ratio"`
	Unit    string  `json:"unit"`
	Display string  `json:"display"`
}

// Progress is the per-metric comparison shown above the food list.
type Progress struct {
	Kcal    Readout `json:"kcal"`
	Protein Readout `json:"protein"`
	Fiber   Readout `json:"fiber"`
}

// Compare reports each total against its goal. A zero goal gives a zero ratio.
func Compare(t Totals, g models.Goals) Progress {
	return Progress{
		Kcal:    readout(Calories, t.Kcal, g.Kcal),
		Protein: readout(Protein, t.Protein, g.Protein),
		Fiber:   readout(Fiber, t.Fiber, g.Fiber),
	}
}

func readout(m Metric, value, goal float64) Readout {
	ratio := 0.0
	if goal > 0 {
		ratio = value / goal
	}
	return Readout{
		Metric: m,
		Value:  value,
		Goal:   goal,
		Ratio:  ratio,
		Unit:   m.Unit(),
		Display: fmt.Sprintf("%s / %s %s",
			strconv.FormatFloat(value, 'f', m.Decimals(), 64),
			strconv.FormatFloat(goal, 'f', -1, 64),
			m.Unit()),
	}
}

// Round rounds v to the metric's display precision.
func Round(m Metric, v float64) float64 {
	scale := math.Pow(10, float64(m.Decimals()))
	return math.Round(v*scale) / scale
}

// Point is one day in a chart series.
type Point struct {
	Date  string  `json:"date"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Chart is a single-metric time series with its goal reference line.
type Chart struct {
	Metric Metric  `json:"metric"`
	Unit   string  `json:"unit"`
	Goal   float64 `json:"goal"`
	Points []Point `json:"points"`
}

// Series turns daily totals into a chart for one metric.
func Series(days []models.DayTotals, m Metric, g models.Goals) Chart {
	points := make([]Point, 0, len(days))
	for _, d := range days {
		label := d.Date
		if t, err := time.Parse(models.DateLayout, d.Date); err == nil {
			label = t.Format("Jan 2")
		}
		points = append(points, Point{
			Date:  d.Date,
			Label: label,
			Value: Round(m, m.pick(d.Kcal, d.Protein, d.Fiber)),
		})
	}
	return Chart{
		Metric: m,
		Unit:   m.Unit(),
		Goal:   m.pick(g.Kcal, g.Protein, g.Fiber),
		Points: points,
	}
}

// Window returns the first and last date of a period of days ending at end.
func Window(end time.Time, days int) (string, string) {
	if days < 1 {
		days = 1
	}
	start := end.AddDate(0, 0, -(days - 1))
	return start.Format(models.DateLayout), end.Format(models.DateLayout)
}
