package monitor

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/banshee-data/dockgrid/internal/grid"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// RenderOccupancyPage writes an HTML page with two charts: the distribution
// of candidate list lengths, and the mean list length of each (x, y) column
// of cells plotted at the column centre.
func RenderOccupancyPage(w io.Writer, g *grid.Grid, title string) error {
	if g == nil {
		return fmt.Errorf("nil grid")
	}
	stats := g.Occupancy()

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(occupancyBar(g, title, stats), columnScatter(g, stats))

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

func occupancyBar(g *grid.Grid, title string, stats grid.OccupancyStats) *charts.Bar {
	hist := make(map[int]int)
	for _, c := range g.Counts() {
		hist[int(c)]++
	}
	keys := make([]int, 0, len(hist))
	for k := range hist {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	x := make([]string, len(keys))
	y := make([]opts.BarData, len(keys))
	for i, k := range keys {
		x[i] = strconv.Itoa(k)
		y[i] = opts.BarData{Value: hist[k]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: stats.String()}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "candidates"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "cells"}),
	)
	bar.SetXAxis(x).AddSeries("cells", y)
	return bar
}

func columnScatter(g *grid.Grid, stats grid.OccupancyStats) *charts.Scatter {
	n := g.Dims().Resolution()
	data := make([]opts.ScatterData, 0, n[0]*n[1])
	for x := range n[0] {
		for y := range n[1] {
			total := 0
			for z := range n[2] {
				total += len(g.Cell(x, y, z))
			}
			lo := g.IndexToCoord(x, y, 0)
			hi := g.IndexToCoord(x+1, y+1, 0)
			mean := float64(total) / float64(n[2])
			data = append(data, opts.ScatterData{Value: []interface{}{(lo.X + hi.X) / 2, (lo.Y + hi.Y) / 2, mean}})
		}
	}

	maxMean := float32(stats.Max)
	if maxMean < 1 {
		maxMean = 1
	}

	box := g.Dims().Box()
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Mean candidates per column", Subtitle: g.Dims().String()}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: box.Min.X, Max: box.Max.X, Name: "X (Å)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: box.Min.Y, Max: box.Max.Y, Name: "Y (Å)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        maxMean,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("columns", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))
	return scatter
}
