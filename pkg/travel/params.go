package travel

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is wrapped by all parameter validation errors. Parameter
// errors are structural: the run controller rejects them before the
// executor is invoked.
var ErrInvalidParams = errors.New("invalid parameters")

// Params are the inputs of one planning run. Interests is optional;
// everything else is required.
type Params struct {
	Destination string   `json:"destination"`
	Budget      int      `json:"budget"`
	Days        int      `json:"days"`
	Travelers   int      `json:"travelers"`
	Interests   []string `json:"interests,omitempty"`
}

// Validate checks the required fields and numeric bounds.
func (p Params) Validate() error {
	if p.Destination == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidParams)
	}
	if p.Budget <= 0 {
		return fmt.Errorf("%w: budget must be positive, got %d", ErrInvalidParams, p.Budget)
	}
	if p.Days <= 0 {
		return fmt.Errorf("%w: days must be positive, got %d", ErrInvalidParams, p.Days)
	}
	if p.Travelers <= 0 {
		return fmt.Errorf("%w: travelers must be positive, got %d", ErrInvalidParams, p.Travelers)
	}
	return nil
}
