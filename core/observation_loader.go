// core/observation_loader.go
package core

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/signalsfoundry/ionosphere-simulator/model"
)

// ObservationInventory is a small summary of what was loaded from JSON.
// It's mainly useful for logging or debugging from main().
type ObservationInventory struct {
	ObservationIDs []string
	Stations       int
	Directions     int
}

// ObservationStore accepts loaded observations. kb.Store satisfies it; a
// slice-backed test double works just as well.
type ObservationStore interface {
	Add(obs *model.Observation) error
}

// internal JSON shapes – keep them unexported so we're free to evolve them.
type observationFileJSON struct {
	Observations []observationJSON `json:"observations"`
}

type observationJSON struct {
	ID   string `json:"id"`
	Mode string `json:"mode"` // "relative" | "absolute"

	StartMJDSeconds float64 `json:"start_mjd_seconds"`
	StepSeconds     float64 `json:"step_seconds"`
	Steps           int     `json:"steps"`

	Stations   []stationJSON   `json:"stations"`
	Directions []directionJSON `json:"directions"`

	Ionosphere *ionosphereJSON `json:"ionosphere"` // optional; defaults apply
}

type stationJSON struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Position positionJSON `json:"position"`
}

type positionJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type directionJSON struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	RA   float64 `json:"ra"`
	Dec  float64 `json:"dec"`
}

type ionosphereJSON struct {
	HeightM       float64 `json:"height_m"`
	R0Km          float64 `json:"r0_km"`
	SpeedMps      float64 `json:"speed_mps"`
	Alpha         float64 `json:"alpha"`
	AngResArcsec  float64 `json:"ang_res_arcsec"`
	MaxVTECU      float64 `json:"max_vtecu"`
	ExpectedSTECU float64 `json:"expected_stecu"`
	Seed          int64   `json:"seed"`
}

// LoadObservations reads a JSON observation file from r, adds every
// observation it contains to the store, and returns a summary of what was
// loaded.
//
// It fails on JSON / structural errors and on whatever the store rejects
// (duplicate IDs, incomplete observations); the store's validation is the
// single source of truth, nothing is re-checked here.
func LoadObservations(store ObservationStore, r io.Reader) (*ObservationInventory, error) {
	if store == nil {
		return nil, fmt.Errorf("LoadObservations: store is nil")
	}

	var payload observationFileJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadObservations: decode failed: %w", err)
	}

	inv := &ObservationInventory{
		ObservationIDs: make([]string, 0, len(payload.Observations)),
	}

	for _, jsObs := range payload.Observations {
		if jsObs.ID == "" {
			return nil, fmt.Errorf("LoadObservations: observation with empty id")
		}

		obs := &model.Observation{
			ID:              jsObs.ID,
			Mode:            tecModeFromString(jsObs.Mode),
			StartMJDSeconds: jsObs.StartMJDSeconds,
			StepSeconds:     jsObs.StepSeconds,
			Steps:           jsObs.Steps,
		}

		for _, jsSt := range jsObs.Stations {
			if jsSt.ID == "" {
				return nil, fmt.Errorf("LoadObservations: observation %q: station with empty id", jsObs.ID)
			}
			obs.Stations = append(obs.Stations, model.Station{
				ID:   jsSt.ID,
				Name: jsSt.Name,
				Position: model.Position{
					X: jsSt.Position.X,
					Y: jsSt.Position.Y,
					Z: jsSt.Position.Z,
				},
			})
		}

		for _, jsDir := range jsObs.Directions {
			if jsDir.ID == "" {
				return nil, fmt.Errorf("LoadObservations: observation %q: direction with empty id", jsObs.ID)
			}
			obs.Directions = append(obs.Directions, model.Direction{
				ID:   jsDir.ID,
				Name: jsDir.Name,
				RA:   jsDir.RA,
				Dec:  jsDir.Dec,
			})
		}

		if ion := jsObs.Ionosphere; ion != nil {
			obs.Ionosphere = model.IonosphereParams{
				HeightM:       ion.HeightM,
				R0Km:          ion.R0Km,
				SpeedMps:      ion.SpeedMps,
				Alpha:         ion.Alpha,
				AngResArcsec:  ion.AngResArcsec,
				MaxVTECU:      ion.MaxVTECU,
				ExpectedSTECU: ion.ExpectedSTECU,
				Seed:          ion.Seed,
			}
		}
		obs.Ionosphere = obs.Ionosphere.WithDefaults()

		if err := store.Add(obs); err != nil {
			return nil, fmt.Errorf("LoadObservations: %w", err)
		}

		inv.ObservationIDs = append(inv.ObservationIDs, jsObs.ID)
		inv.Stations += len(obs.Stations)
		inv.Directions += len(obs.Directions)
	}

	return inv, nil
}

// tecModeFromString maps the JSON "mode" string to our TecMode constants.
//
// We keep this tolerant: unknown / empty values default to relative mode,
// which is what calibration-style simulations want most of the time.
func tecModeFromString(s string) model.TecMode {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "absolute", "abs", "vtec":
		return model.TecModeAbsolute
	case "relative", "rel", "differential", "diff", "":
		return model.TecModeRelative
	default:
		return model.TecModeRelative
	}
}
