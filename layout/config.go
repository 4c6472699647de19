package layout

import (
	"fmt"

	"github.com/awantoch/scriptflow/config"
	"github.com/awantoch/scriptflow/constants"
)

// FromConfig builds an Assigner with the configured spacing. name overrides
// the configured strategy when non-empty.
func FromConfig(cfg config.LayoutConfig, name string) (*Assigner, error) {
	if name == "" {
		name = cfg.Strategy
	}
	strategy, ok := ParseStrategy(name)
	if !ok {
		return nil, fmt.Errorf("%s: %s", constants.ResponseUnknownStrategy, name)
	}
	return New(Options{
		Strategy:       strategy,
		SiblingSpacing: cfg.SiblingSpacing,
		LevelSpacing:   cfg.LevelSpacing,
	}), nil
}
