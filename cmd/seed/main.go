package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/config"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/log"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

// meanIrradiance is a typical winter day in Anatolia, in kWh/m².
const meanIrradiance = 2.2

// samplePlant describes a generated plant and the shape of its export.
type samplePlant struct {
	types.PlantConfig
	header string
	// targetPR is the performance ratio the generated values aim for
	targetPR float64
	mwh      bool
	csv      bool
}

var samplePlants = []samplePlant{
	{PlantConfig: types.PlantConfig{ID: "GES-KONYA-01", CapacityKWp: 1000, Latitude: 37.87, Longitude: 32.48}, header: "Gerçekleşen Üretim (kWh)", targetPR: 0.88},
	{PlantConfig: types.PlantConfig{ID: "GES-IZMIR-02", CapacityKWp: 750, Latitude: 38.42, Longitude: 27.14}, header: "Active Energy (kWh)", targetPR: 0.78},
	{PlantConfig: types.PlantConfig{ID: "GES-ANTALYA-03", CapacityKWp: 2000, Latitude: 36.90, Longitude: 30.70}, header: "Production (MWh)", targetPR: 0.90, mwh: true},
	{PlantConfig: types.PlantConfig{ID: "GES-VAN-04", CapacityKWp: 500, Latitude: 38.50, Longitude: 43.38}, header: "Yield", targetPR: 0.62, csv: true},
}

func main() {
	dir := lflag.String("seed-dir", "./sample", "Directory to write the sample fleet into")
	monthStr := lflag.String("seed-month", "2026-01", "Month to generate data for (YYYY-MM)")
	lflag.Configure()

	ctx := context.Background()
	month, err := types.ParseMonth(*monthStr)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid month", slog.Any("error", err))
		os.Exit(1)
	}
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to create seed dir", slog.Any("error", err))
		os.Exit(1)
	}

	log.Ctx(ctx).InfoContext(ctx, "seeding sample fleet", slog.String("dir", *dir), slog.String("month", month.String()))

	// Use a new random source
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	fleet := config.Default()
	fleet.TargetMonth = month
	for _, p := range samplePlants {
		p.Source = p.ID + ".xlsx"
		if p.csv {
			p.Source = p.ID + ".csv"
		}
		rows := generateRows(rng, p, month, fleet.TiltFactor, fleet.SystemLoss)

		path := filepath.Join(*dir, p.Source)
		if p.csv {
			err = writeCSV(path, rows)
		} else {
			err = writeWorkbook(path, p.ID, rows)
		}
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to write plant data", slog.String("plantID", p.ID), slog.Any("error", err))
			os.Exit(1)
		}
		fleet.Plants = append(fleet.Plants, p.PlantConfig)
		log.Ctx(ctx).InfoContext(ctx, "wrote plant data", slog.String("plantID", p.ID), slog.String("path", path))
	}

	out, err := yaml.Marshal(fleet)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to marshal fleet config", slog.Any("error", err))
		os.Exit(1)
	}
	cfgPath := filepath.Join(*dir, "fleet.yaml")
	if err := os.WriteFile(cfgPath, out, 0o644); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to write fleet config", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "seeding complete", slog.String("config", cfgPath))
}

// generateRows returns the header row and one row per day, including the
// last day of the previous month so the month filter has something to drop.
func generateRows(rng *rand.Rand, p samplePlant, month types.Month, tilt, loss float64) [][]string {
	rows := [][]string{{"Tarih", p.header}}
	start := month.FirstDay().AddDate(0, 0, -1)
	for d := start; !d.After(month.LastDay()); d = d.AddDate(0, 0, 1) {
		// cloudy and clear days
		irr := meanIrradiance * (0.4 + rng.Float64()*1.2)
		kwh := irr * tilt * p.CapacityKWp * loss * p.targetPR
		if p.mwh {
			kwh /= 1000
		}
		kwh = math.Round(kwh*100) / 100
		rows = append(rows, []string{d.Format(time.DateOnly), strconv.FormatFloat(kwh, 'f', -1, 64)})
	}
	return rows
}

// writeWorkbook writes rows below the same five preamble rows the
// monitoring portal exports carry.
func writeWorkbook(path, plantID string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetList()[0]

	preamble := [][]any{
		{"Plant Performance Export"},
		{"Plant", plantID},
		{"Generated", time.Now().UTC().Format(time.RFC3339)},
		{"Resolution", "Daily"},
		{"Unit", "kWh"},
	}
	for i, row := range preamble {
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}
	for i, row := range rows {
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
			if i > 0 && j == 1 {
				// numbers as numbers so the export looks like the real thing
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					values[j] = n
				}
			}
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", len(preamble)+i+1), &values); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// writeCSV writes a semicolon separated export with decimal commas and the
// same preamble.
func writeCSV(path string, rows [][]string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	w.Comma = ';'
	records := [][]string{
		{"Plant Performance Export"},
		{"Resolution", "Daily"},
		{"Unit", "kWh"},
		{"Separator", "semicolon"},
		{"Decimal", "comma"},
	}
	for i, row := range rows {
		if i == 0 {
			records = append(records, row)
			continue
		}
		d, err := time.Parse(time.DateOnly, row[0])
		if err != nil {
			return err
		}
		records = append(records, []string{d.Format("02.01.2006"), commaDecimal(row[1])})
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return out.Close()
}

func commaDecimal(s string) string {
	for i := range s {
		if s[i] == '.' {
			return s[:i] + "," + s[i+1:]
		}
	}
	return s
}
