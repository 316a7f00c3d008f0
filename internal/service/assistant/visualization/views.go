package visualization

import (
	"math"
	"sort"
	"time"

	models "flowbot/internal/domain/models/assistant"
)

// UnknownDay groups entries whose timestamp cannot be parsed.
const UnknownDay = "unknown"

// MinGeoSpan is the span (degrees) used when all points share a coordinate.
const MinGeoSpan = 0.01

// PaddingFactor is the share of the span added on each side of a map.
const PaddingFactor = 0.1

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the timestamp shapes the backend emits.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TimelineDay is one calendar day of a timeline
type TimelineDay struct {
	Day    string                 `json:"day"`
	Events []models.TimelineEvent `json:"events"`
}

// GroupTimeline groups events by the calendar day of their own timestamp,
// days and events ascending. Unparsable timestamps are grouped last.
func GroupTimeline(events []models.TimelineEvent) []TimelineDay {
	keyed := make([]dated[models.TimelineEvent], len(events))
	for i, ev := range events {
		keyed[i] = newDated(ev, ev.Timestamp)
	}
	var out []TimelineDay
	for _, g := range groupByDay(keyed) {
		out = append(out, TimelineDay{Day: g.day, Events: g.items})
	}
	return out
}

// Bubble is a chat line with its alignment
type Bubble struct {
	models.ChatLine
	Align string `json:"align"` // left | right
}

// ChatDay is one day of a reconstructed conversation
type ChatDay struct {
	Day     string   `json:"day"`
	Bubbles []Bubble `json:"bubbles"`
}

// GroupChat groups lines by day; sent lines align right, everything else left.
func GroupChat(lines []models.ChatLine) []ChatDay {
	keyed := make([]dated[models.ChatLine], len(lines))
	for i, l := range lines {
		keyed[i] = newDated(l, l.Timestamp)
	}
	var out []ChatDay
	for _, g := range groupByDay(keyed) {
		day := ChatDay{Day: g.day, Bubbles: make([]Bubble, len(g.items))}
		for i, l := range g.items {
			align := "left"
			if l.Direction == "sent" {
				align = "right"
			}
			day.Bubbles[i] = Bubble{ChatLine: l, Align: align}
		}
		out = append(out, day)
	}
	return out
}

// GeoBounds is a padded bounding box
type GeoBounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// MapView is a point set with its bounding box and route
type MapView struct {
	Points []models.GeoPoint `json:"points"`
	Bounds *GeoBounds        `json:"bounds,omitempty"`
	Path   []models.GeoPoint `json:"path"`
}

// BuildMap computes the padded bounding box and the polyline in timestamp
// order. Points without a parsable timestamp follow the timed ones in input
// order.
func BuildMap(points []models.GeoPoint) MapView {
	view := MapView{Points: points, Path: []models.GeoPoint{}}
	if len(points) == 0 {
		view.Points = []models.GeoPoint{}
		return view
	}

	minLat, maxLat := math.Inf(1), math.Inf(-1)
	minLon, maxLon := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		minLat, maxLat = math.Min(minLat, p.Lat), math.Max(maxLat, p.Lat)
		minLon, maxLon = math.Min(minLon, p.Lon), math.Max(maxLon, p.Lon)
	}
	padLat := PaddingFactor * span(maxLat-minLat)
	padLon := PaddingFactor * span(maxLon-minLon)
	view.Bounds = &GeoBounds{
		MinLat: minLat - padLat,
		MaxLat: maxLat + padLat,
		MinLon: minLon - padLon,
		MaxLon: maxLon + padLon,
	}

	keyed := make([]dated[models.GeoPoint], len(points))
	for i, p := range points {
		keyed[i] = newDated(p, p.Timestamp)
	}
	sortDated(keyed)
	for _, k := range keyed {
		view.Path = append(view.Path, k.item)
	}
	return view
}

func span(v float64) float64 {
	if v <= 0 {
		return MinGeoSpan
	}
	return v
}

type dated[T any] struct {
	item T
	at   time.Time
	ok   bool
}

func newDated[T any](item T, ts string) dated[T] {
	at, ok := ParseTimestamp(ts)
	return dated[T]{item: item, at: at, ok: ok}
}

// sortDated orders timed entries ascending, untimed last, stable otherwise.
func sortDated[T any](items []dated[T]) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return false
		}
		return a.at.Before(b.at)
	})
}

type dayGroup[T any] struct {
	day   string
	items []T
}

// groupByDay buckets entries by the calendar day of their own timestamp
// offset. Days ascend, entries ascend within a day, unknown goes last.
func groupByDay[T any](items []dated[T]) []dayGroup[T] {
	sortDated(items)

	var groups []dayGroup[T]
	index := make(map[string]int)
	for _, it := range items {
		day := UnknownDay
		if it.ok {
			day = it.at.Format("2006-01-02")
		}
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, dayGroup[T]{day: day})
		}
		groups[i].items = append(groups[i].items, it.item)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].day, groups[j].day
		if (a == UnknownDay) != (b == UnknownDay) {
			return b == UnknownDay
		}
		return a < b
	})
	return groups
}
