package chromameter

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"math"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ztkent/chroma-meter/tcs34725"
)

//go:embed html/*
var templateFiles embed.FS

type Meter struct {
	*tcs34725.TCS34725
	ReadingsChan chan Reading
	ResultsDB    *sql.DB
	cancel       context.CancelFunc
	Pid          int
}

type Reading struct {
	Lux     float64 // DN40 lux estimate
	CCT     uint16  // McCamy color temperature
	DN40CCT uint16  // IR-compensated color temperature
	R       float64 // normalized 0-255
	G       float64
	B       float64
	Clear   uint16
	JobID   string
}

type Conditions struct {
	JobID                 string  `json:"jobID"`
	Lux                   float64 `json:"lux"`
	CCT                   uint16  `json:"cct"`
	DN40CCT               uint16  `json:"dn40Cct"`
	Red                   float64 `json:"red"`
	Green                 float64 `json:"green"`
	Blue                  float64 `json:"blue"`
	DateRange             string  `json:"dateRange"`
	RecordedHoursInRange  float64 `json:"recordedHoursInRange"`
	AverageLuxInRange     float64 `json:"averageLuxInRange"`
	AverageCCTInRange     float64 `json:"averageCctInRange"`
	LightConditionInRange string  `json:"lightConditionInRange"`
}

const (
	MAX_JOB_DURATION = 8 * time.Hour
	RECORD_INTERVAL  = 30 * time.Second
	DB_PATH          = "chromameter.db"
)

// Start the sensor, and collect data in a loop
func (m *Meter) Start() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Println("Let's see what color the day is!")
		if m.TCS34725 == nil {
			ServeResponse(w, r, "The sensor is not connected", http.StatusBadRequest)
			return
		} else if m.Enabled {
			ServeResponse(w, r, "The sensor is already started", http.StatusBadRequest)
			return
		}

		go func() {
			// Create a new context with a timeout to manage the sensor lifecycle
			ctx, cancel := context.WithTimeout(context.Background(), MAX_JOB_DURATION)
			m.cancel = cancel

			// Enable the sensor, read continuously until the job ends.
			// One-shot reads would pay the full bring-up delay per tick.
			m.Enable()
			defer m.Disable()

			jobID := uuid.New().String()
			ticker := time.NewTicker(RECORD_INTERVAL)
			for {
				// Check if we've cancelled this job.
				select {
				case <-ctx.Done():
					log.Println("Job Cancelled, stopping sensor")
					return
				default:
				}

				// Read the sensor
				red, green, blue, clear, err := m.ReadRaw()
				if err != nil {
					log.Println(fmt.Sprintf("The sensor failed to read: %s", err.Error()))
					m.ReadingsChan <- Reading{
						JobID: jobID,
					}
					<-ticker.C
					continue
				}

				// Derive color temperature and lux from the raw sample
				dn40CCT, lux, err := m.CalculateColorTemperatureDN40(red, green, blue, clear)
				if err != nil {
					if errors.Is(err, tcs34725.ErrSaturated) {
						log.Println("The sensor is saturated, attempting a less sensitive configuration")
						if err := m.SetOptimalConfig(); err != nil {
							log.Println(fmt.Sprintf("The sensor failed to find a workable configuration: %s", err.Error()))
						} else {
							log.Println("The sensor has been reconfigured")
						}
						time.Sleep(5 * time.Second)
						continue
					}
					log.Println(fmt.Sprintf("The sensor reading was unusable: %s", err.Error()))
					m.ReadingsChan <- Reading{
						JobID: jobID,
					}
					<-ticker.C
					continue
				}

				// The chromaticity-based estimate degenerates on all-zero
				// input; record 0 for it and keep the DN40 values.
				cct, err := m.CalculateColorTemperature(red, green, blue)
				if err != nil {
					cct = 0
				}

				// Send the results to the ReadingsChan
				m.ReadingsChan <- Reading{
					Lux:     lux,
					CCT:     cct,
					DN40CCT: dn40CCT,
					R:       normalizeChannel(red, clear),
					G:       normalizeChannel(green, clear),
					B:       normalizeChannel(blue, clear),
					Clear:   clear,
					JobID:   jobID,
				}
				<-ticker.C
			}
		}()
		w.WriteHeader(http.StatusOK)
		ServeResponse(w, r, "Color Reading Started", http.StatusOK)
		return
	}
}

// Normalize a channel against the clear reading, scaled to 0-255
func normalizeChannel(value, clear uint16) float64 {
	if clear == 0 {
		return 0
	}
	return float64(value) / float64(clear) * 255.0
}

// Stop the sensor, and cancel the job context
func (m *Meter) Stop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.TCS34725 == nil {
			ServeResponse(w, r, "The sensor is not connected", http.StatusBadRequest)
			return
		} else if !m.Enabled {
			ServeResponse(w, r, "The sensor is already stopped", http.StatusBadRequest)
			return
		}

		// Stop the sensor, cancel the job context
		defer m.Disable()
		m.cancel()

		w.WriteHeader(http.StatusOK)
		ServeResponse(w, r, "Color Reading Stopped", http.StatusOK)
		return
	}
}

// Serve data about the most recent entry saved to the db
func (m *Meter) CurrentConditions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.TCS34725 == nil {
			ServeResponse(w, r, "The sensor is not connected", http.StatusBadRequest)
			return
		} else if !m.Enabled {
			ServeResponse(w, r, "The sensor is not enabled", http.StatusBadRequest)
			return
		}
		conditions, err := m.getCurrentConditions()
		if err != nil {
			log.Println(err)
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}

		conditionsData, err := json.Marshal(conditions)
		if err != nil {
			log.Println(err)
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		ServeResponse(w, r, string(conditionsData), http.StatusOK)
		return
	}
}

// Return the most recent entry saved to the db
func (m *Meter) getCurrentConditions() (Conditions, error) {
	if m.TCS34725 == nil || !m.Enabled {
		return Conditions{}, nil
	}
	conditions := Conditions{}
	row := m.ResultsDB.QueryRow("SELECT job_id, lux, cct, dn40_cct, r, g, b FROM readings ORDER BY id DESC LIMIT 1")
	err := row.Scan(&conditions.JobID, &conditions.Lux, &conditions.CCT, &conditions.DN40CCT, &conditions.Red, &conditions.Green, &conditions.Blue)
	if err != nil {
		log.Println(err)
		return Conditions{}, err
	}
	return conditions, nil
}

// Check the signal strength of the wifi connection
func (m *Meter) SignalStrength() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd := exec.Command("sh", "-c", "iw dev wlan0 link | grep 'signal:' | awk '{print $2}'")
		output, err := cmd.Output()
		if err != nil {
			log.Println(err)
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}
		signalInt, err := strconv.Atoi(strings.TrimSpace(string(output)))
		if err != nil {
			ServeResponse(w, r, "Device is not connected to a network", http.StatusBadRequest)
			return
		}

		// Convert the signal to a strength value
		// https://git.openwrt.org/?p=project/iwinfo.git;a=blob;f=iwinfo_nl80211.c;hb=HEAD#l2885
		if signalInt < -110 {
			signalInt = -110
		} else if signalInt > -40 {
			signalInt = -40
		}

		// Scale the signal to a percentage
		strength := (signalInt + 110) * 100 / 70
		if strength < 0 {
			strength = 0
		} else if strength > 100 {
			strength = 100
		}

		log.Println("Signal: ", fmt.Sprintf("%d", signalInt), " dBm")
		log.Println("Strength: ", strength, "%")

		w.WriteHeader(http.StatusOK)
		ServeResponse(w, r, "Signal Strength: "+fmt.Sprintf("%d", signalInt)+" dBm\nQuality: "+fmt.Sprintf("%d", strength)+"%", http.StatusOK)
		return
	}
}

// Populate the response div with a message, or reply with a JSON message
func ServeResponse(w http.ResponseWriter, r *http.Request, message string, status int) {
	if strings.Contains(r.URL.Path, "/api/v1/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"message": message})
		return
	}

	tmpl, err := parseTemplateFile("html/response.gohtml")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	err = tmpl.Execute(w, message)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func parseTemplateFile(path string) (*template.Template, error) {
	content, err := templateFiles.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to read embedded template: %v", err)
	}

	tmpl, err := template.New("results").Parse(string(content))
	if err != nil {
		log.Fatalf("failed to parse template: %v", err)
	}
	return tmpl, nil
}

// Read from ReadingsChan, write the results to sqlite
func (m *Meter) MonitorAndRecordResults() {
	log.Println("Monitoring for new Color Readings...")
	for {
		select {
		case result := <-m.ReadingsChan:
			log.Println(fmt.Sprintf("- JobID: %s, Lux: %.5f, CCT: %dK", result.JobID, result.Lux, result.DN40CCT))
			if math.IsInf(result.Lux, 1) || math.IsNaN(result.Lux) {
				log.Println("Lux is invalid, skipping record")
				continue
			}
			_, err := m.ResultsDB.Exec(
				"INSERT INTO readings (job_id, lux, cct, dn40_cct, r, g, b, clear) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
				result.JobID,
				fmt.Sprintf("%.5f", result.Lux),
				result.CCT,
				result.DN40CCT,
				fmt.Sprintf("%.3f", result.R),
				fmt.Sprintf("%.3f", result.G),
				fmt.Sprintf("%.3f", result.B),
				result.Clear,
			)
			if err != nil {
				log.Println(err)
			}
		}
	}
}
