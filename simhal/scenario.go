package simhal

import (
	"time"

	"github.com/BurntSushi/toml"
)

// fixture mirrors Scenario but with TOML-friendly field types (string
// durations instead of time.Duration) — the toml package decodes
// directly into it, the way a scenario file on disk would look.
type fixture struct {
	BSP struct {
		HWID uint32 `toml:"hw_id"`
	}
	APs []struct {
		HWID         uint32 `toml:"hw_id"`
		Misbehave    bool   `toml:"misbehave"`
		OnboardDelay string `toml:"onboard_delay"`
	} `toml:"ap"`
	JoinTimeout string `toml:"join_timeout"`
}

// LoadScenario decodes a TOML scenario fixture (see simhal/testdata) into
// a Scenario. Malformed duration strings are a fixture-authoring error,
// not a runtime condition — LoadScenario returns an error so cmd/mpsim
// can report it instead of panicking the whole simulator.
func LoadScenario(path string) (Scenario, error) {
	var fx fixture
	if _, err := toml.DecodeFile(path, &fx); err != nil {
		return Scenario{}, err
	}

	var s Scenario
	s.BSP = Processor{HWID: fx.BSP.HWID}

	if fx.JoinTimeout != "" {
		d, err := time.ParseDuration(fx.JoinTimeout)
		if err != nil {
			return Scenario{}, err
		}
		s.JoinTimeout = d
	}

	for _, ap := range fx.APs {
		p := Processor{HWID: ap.HWID, Misbehave: ap.Misbehave}
		if ap.OnboardDelay != "" {
			d, err := time.ParseDuration(ap.OnboardDelay)
			if err != nil {
				return Scenario{}, err
			}
			p.OnboardDelay = d
		}
		s.APs = append(s.APs, p)
	}
	return s, nil
}
