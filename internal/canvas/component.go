package canvas

// Kind tags the visual payload of a component. The set is closed: the
// decoder rejects anything outside kindSet, and the agent prompt layer is
// generated from the same table.
type Kind string

const (
	KindTable       Kind = "table"
	KindBarChart    Kind = "bar_chart"
	KindLineChart   Kind = "line_chart"
	KindAreaChart   Kind = "area_chart"
	KindPieChart    Kind = "pie_chart"
	KindScatterPlot Kind = "scatter_plot"
	KindHeatmap     Kind = "heatmap"
	KindHistogram   Kind = "histogram"
	KindRadarChart  Kind = "radar_chart"
	KindFunnel      Kind = "funnel"
	KindGauge       Kind = "gauge"
	KindTreemap     Kind = "treemap"
	KindSankey      Kind = "sankey"
	KindWaterfall   Kind = "waterfall"
	KindCandlestick Kind = "candlestick"
	KindKPI         Kind = "kpi"
	KindKPIRow      Kind = "kpi_row"
	KindNumber      Kind = "number"
	KindProgress    Kind = "progress"
	KindText        Kind = "text"
	KindMarkdown    Kind = "markdown"
	KindCode        Kind = "code"
	KindQuote       Kind = "quote"
	KindChecklist   Kind = "checklist"
	KindTimeline    Kind = "timeline"
	KindKanban      Kind = "kanban"
	KindImage       Kind = "image"
	KindEmbed       Kind = "embed"
	KindMap         Kind = "map"
	KindStickyNote  Kind = "sticky_note"
)

// kindSet is the single source of truth for the closed union. Kinds() and
// KnownKind derive from it; a test checks every Kind constant is present.
var kindSet = map[Kind]struct{}{
	KindTable:       {},
	KindBarChart:    {},
	KindLineChart:   {},
	KindAreaChart:   {},
	KindPieChart:    {},
	KindScatterPlot: {},
	KindHeatmap:     {},
	KindHistogram:   {},
	KindRadarChart:  {},
	KindFunnel:      {},
	KindGauge:       {},
	KindTreemap:     {},
	KindSankey:      {},
	KindWaterfall:   {},
	KindCandlestick: {},
	KindKPI:         {},
	KindKPIRow:      {},
	KindNumber:      {},
	KindProgress:    {},
	KindText:        {},
	KindMarkdown:    {},
	KindCode:        {},
	KindQuote:       {},
	KindChecklist:   {},
	KindTimeline:    {},
	KindKanban:      {},
	KindImage:       {},
	KindEmbed:       {},
	KindMap:         {},
	KindStickyNote:  {},
}

// KnownKind reports whether kind is in the closed component set.
func KnownKind(kind Kind) bool {
	_, ok := kindSet[kind]
	return ok
}

// Kinds returns every kind in the closed set.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindSet))
	for kind := range kindSet {
		out = append(out, kind)
	}
	return out
}
