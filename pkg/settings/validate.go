package settings

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects a Config whose fields don't satisfy the struct tags
// declared above, matching the specification's requirement that invalid
// constructor arguments abort construction rather than produce a
// partially-usable engine.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}
