package syncer

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/roleautomator/jamfroles/pkg/sources"
)

// Config holds everything a sync run needs.
type Config struct {
	OutputDir      string        `validate:"required"`
	ClassicURL     string        `validate:"required,url"`
	JamfProURL     string        `validate:"required,url"`
	AllowedDomains []string      `validate:"min=1,dive,required"`
	Timeout        time.Duration `validate:"gt=0"`
	Retries        int           `validate:"gte=0,lte=10"`
	Proxy          string        `validate:"omitempty,url"`
	DBPath         string
	DryRun         bool
}

// DefaultConfig returns the settings used by the scheduled job.
func DefaultConfig() Config {
	return Config{
		OutputDir:      "roles",
		ClassicURL:     sources.ClassicURL,
		JamfProURL:     sources.JamfProURL,
		AllowedDomains: append([]string{}, sources.DefaultAllowedDomains...),
		Timeout:        30 * time.Second,
	}
}

var validate = validator.New()

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
