package chromameter

import (
	"database/sql"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/ztkent/chroma-meter/internal/tools"
)

// Serve the sqlite db for download
func (m *Meter) ServeResultsDB() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", "chromameter.db"))
		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeFile(w, r, DB_PATH)
	}
}

// Serve the homepage
func (m *Meter) ServeDashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		fileContent, err := parseHTMLFile("html/dashboard.html")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Write(fileContent)
	}
}

func parseHTMLFile(path string) ([]byte, error) {
	content, err := templateFiles.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded html file: %v", err)
	}
	return content, nil
}

// Serve the controls for the sensor, start/stop/export/current-conditions/signal-strength
func (m *Meter) ServeChromaControls() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl, err := parseTemplateFile("html/controls.gohtml")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		err = tmpl.Execute(w, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

// Status of the sensor
func (m *Meter) ServeSensorStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl, err := parseTemplateFile("html/status.gohtml")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		// Setup the status response
		type Status struct {
			Connected bool
			Enabled   bool
		}
		status := Status{}
		if m.TCS34725 == nil {
			status.Connected = false
		} else {
			status.Connected = true
			status.Enabled = m.Enabled
		}

		err = tmpl.Execute(w, status)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

// Serve the results graph
func (m *Meter) ServeResultsGraph() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Get the date range for the graph from the request
		startDate, endDate := tools.ParseStartAndEndDate(r)

		// Query the database for the lux, color temperature and created_at values
		rows, err := m.ResultsDB.Query("SELECT lux, dn40_cct, created_at FROM readings WHERE created_at BETWEEN ? AND ? ORDER BY created_at", startDate, endDate)
		if err != nil {
			log.Println(err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		// Prepare the data for the chart
		var luxValues []opts.LineData
		var cctValues []opts.LineData
		var timeValues []string
		var maxCCT int
		for rows.Next() {
			var lux float64
			var cct int
			var createdAt time.Time
			if err := rows.Scan(&lux, &cct, &createdAt); err != nil {
				log.Println(err)
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			// Format the timestamp
			timeString := createdAt.Format("2006-01-02 15:04:05")
			if cct > maxCCT {
				// Round up to the nearest 1000
				maxCCT = int(math.Ceil(float64(cct)/1000) * 1000)
			}
			luxValues = append(luxValues, opts.LineData{Value: lux})
			cctValues = append(cctValues, opts.LineData{Value: cct})
			timeValues = append(timeValues, timeString)
		}

		// Create a new line chart
		line := charts.NewLine()

		// Add reference series for common light sources
		levels := map[int]string{
			1850: "Orange",
			2700: "Khaki",
			5500: "SkyBlue",
			6500: "WhiteSmoke",
		}
		titles := map[int]string{
			1850: "Candle",
			2700: "Incandescent",
			5500: "Daylight",
			6500: "Overcast",
		}

		for level, color := range levels {
			line.AddSeries(
				fmt.Sprintf("%s", titles[level]),
				func(level int, length int) []opts.LineData {
					data := make([]opts.LineData, length)
					for i := range data {
						data[i] = opts.LineData{Value: level}
					}
					return data
				}(level, len(timeValues)),
				charts.WithLineChartOpts(opts.LineChart{
					Color: color,
				}),
			)
		}

		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{
				Theme: types.ThemeChalk,
			}),
			charts.WithTitleOpts(opts.Title{
				// Title: "Color temperature over time",
			}),
			charts.WithXAxisOpts(opts.XAxis{
				Name: "Time",
			}),
			charts.WithYAxisOpts(opts.YAxis{
				Name: "Kelvin",
				Min:  "0",
				Max:  fmt.Sprintf("%d", maxCCT),
			}),
			charts.WithTooltipOpts(opts.Tooltip{
				// Enable hover with a custom tooltip display
				Show:      true,
				Trigger:   "axis",
				TriggerOn: "mousemove",
				Formatter: "{a4}: {c4}<br> Time: {b0}",
			}),
			charts.WithToolboxOpts(opts.Toolbox{
				Show: true,
				Feature: &opts.ToolBoxFeature{
					SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{
						Show:  true,
						Title: "Save as Image",
						Name:  "chroma-meter",
					},
				},
			}),
		)
		line.SetXAxis(timeValues).AddSeries("CCT", cctValues)
		line.AddSeries("Lux", luxValues)

		// Create a new page and add the line chart to it
		page := components.NewPage()
		page.AddCharts(line)

		// Render the graphs
		w.Header().Set("Content-Type", "text/html")
		page.Render(w)
		// Trigger an update for the results tab
		w.Write([]byte(`<div id='resultUpdateTrigger' hx-post='/chromameter/results' hx-target='#resultsContent' hx-trigger='load'></div>`))
		w.Write([]byte(`<script>document.title = "Chroma Meter";</script>`))
	}
}

// Update the info in the results tab
func (m *Meter) ServeResultsTab() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conditions, err := m.getCurrentConditions()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		startDate, endDate := tools.ParseStartAndEndDate(r)
		conditions, err = m.getHistoricalConditions(conditions, startDate, endDate)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		tmpl, err := parseTemplateFile("html/results.gohtml")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		type ConditionsForDisplay struct {
			JobID                 string `json:"jobID"`
			Lux                   string `json:"lux"`
			CCT                   string `json:"cct"`
			DN40CCT               string `json:"dn40Cct"`
			Red                   string `json:"red"`
			Green                 string `json:"green"`
			Blue                  string `json:"blue"`
			DateRange             string `json:"dateRange"`
			RecordedHoursInRange  string `json:"recordedHoursInRange"`
			AverageLuxInRange     string `json:"averageLuxInRange"`
			AverageCCTInRange     string `json:"averageCctInRange"`
			LightConditionInRange string `json:"lightConditionInRange"`
			StartDate             string `json:"startDate"`
			EndDate               string `json:"endDate"`
		}
		err = tmpl.Execute(w, ConditionsForDisplay{
			JobID:                 conditions.JobID,
			Lux:                   fmt.Sprintf("%.4f", conditions.Lux),
			CCT:                   fmt.Sprintf("%dK", conditions.CCT),
			DN40CCT:               fmt.Sprintf("%dK", conditions.DN40CCT),
			Red:                   fmt.Sprintf("%.1f", conditions.Red),
			Green:                 fmt.Sprintf("%.1f", conditions.Green),
			Blue:                  fmt.Sprintf("%.1f", conditions.Blue),
			DateRange:             conditions.DateRange,
			RecordedHoursInRange:  fmt.Sprintf("%.4f", conditions.RecordedHoursInRange),
			AverageLuxInRange:     fmt.Sprintf("%.4f", conditions.AverageLuxInRange),
			AverageCCTInRange:     fmt.Sprintf("%.0fK", conditions.AverageCCTInRange),
			LightConditionInRange: conditions.LightConditionInRange,
			StartDate:             startDate,
			EndDate:               endDate,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

// Fill in aggregate stats for the date range
func (m *Meter) getHistoricalConditions(conditions Conditions, startDate string, endDate string) (Conditions, error) {
	if m.ResultsDB == nil {
		return conditions, nil
	}
	// Set the date range
	conditions.DateRange = fmt.Sprintf("%s - %s UTC", startDate, endDate)

	// Get the average lux and color temperature for the date range
	row := m.ResultsDB.QueryRow(`
    SELECT
        COALESCE(AVG(lux), 0),
        COALESCE(AVG(dn40_cct), 0),
        COALESCE(MIN(created_at), '0001-01-01 00:00:00'),
        COALESCE(MAX(created_at), '0001-01-01 00:00:00')
    FROM readings
    WHERE created_at BETWEEN ? AND ?`, startDate, endDate)
	var oldest, mostRecent sql.NullString
	err := row.Scan(&conditions.AverageLuxInRange, &conditions.AverageCCTInRange, &oldest, &mostRecent)
	if err != nil {
		return conditions, err
	}
	if conditions.AverageLuxInRange == 0 && conditions.AverageCCTInRange == 0 {
		conditions.LightConditionInRange = "No Data in Range"
		return conditions, nil
	}

	// Describe the dominant light source for the range
	conditions.LightConditionInRange = describeLightSource(conditions.AverageCCTInRange)

	if oldest.Valid && mostRecent.Valid {
		mostRecent, oldest, err := tools.StartAndEndDateToTime(oldest.String, mostRecent.String)
		if err != nil {
			return conditions, err
		}
		conditions.RecordedHoursInRange = oldest.Sub(mostRecent).Hours()
	}

	return conditions, nil
}

// Bucket an average color temperature into a familiar light source
func describeLightSource(cct float64) string {
	switch {
	case cct <= 0:
		return "No Data in Range"
	case cct < 2400:
		return "Candlelight"
	case cct < 3500:
		return "Incandescent"
	case cct < 5000:
		return "Fluorescent"
	case cct < 6000:
		return "Daylight"
	default:
		return "Overcast Sky"
	}
}

// Used to clear a div with htmx
func (m *Meter) Clear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
	}
}
