package dispatch

import (
	"fmt"

	"github.com/zrfleet/depotsim/internal/config"
)

// NewAuthority builds the authority selected by the dispatch config mode.
func NewAuthority(cfg config.DispatchConfig) (Authority, error) {
	switch cfg.Mode {
	case "", "stub":
		return NewStub(nil), nil
	case "http":
		if cfg.ServerURL == "" {
			return nil, fmt.Errorf("dispatch mode http requires a serverUrl")
		}
		return NewClient(cfg.ServerURL, cfg.APIKey, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown dispatch mode %q", cfg.Mode)
	}
}
