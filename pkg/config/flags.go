package config

import (
	"fmt"

	"github.com/levenlabs/go-lflag"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

// Configured loads the fleet config named by the -fleet-config flag. The
// -target-month flag overrides the month in the file.
func Configured() *Fleet {
	path := lflag.RequiredString("fleet-config", "Path to the fleet YAML config")
	month := lflag.String("target-month", "", "Month to audit as YYYY-MM (overrides targetMonth in the fleet config)")

	fleet := &Fleet{}

	lflag.Do(func() {
		loaded, err := Load(*path)
		if err != nil {
			panic(fmt.Sprintf("fleet config invalid: %v", err))
		}
		if *month != "" {
			m, err := types.ParseMonth(*month)
			if err != nil {
				panic(fmt.Sprintf("target month invalid: %v", err))
			}
			loaded.TargetMonth = m
		}
		*fleet = loaded
	})

	return fleet
}
