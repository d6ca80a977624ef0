// Package monitor renders neighbour grid occupancy for resolution tuning:
// a PNG histogram (gonum/plot) and an HTML page (go-echarts).
package monitor
