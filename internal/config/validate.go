package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var validate = newValidator()

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	if err := v.RegisterValidation("duration", validateDuration); err != nil {
		panic(fmt.Sprintf("failed to register duration validator: %v", err))
	}
	if err := v.RegisterValidation("cronspec", validateCronSpec); err != nil {
		panic(fmt.Sprintf("failed to register cronspec validator: %v", err))
	}
	return v
}

func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(strings.TrimSpace(fl.Field().String()))
	return err == nil && d >= 0
}

func validateCronSpec(fl validator.FieldLevel) bool {
	_, err := cronParser.Parse(strings.TrimSpace(fl.Field().String()))
	return err == nil
}

// Validate checks struct tags and cross-field rules. Every violation is
// reported, keyed by its JSON path.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if err := validate.Struct(cfg); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return err
		}
		for _, fe := range ves {
			errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", jsonPath(fe.Namespace()), fe.Tag(), redact(fe)))
		}
	}
	h := cfg.Habits
	if h.MinNameLen > 0 && h.MaxNameLen > 0 && h.MinNameLen > h.MaxNameLen {
		errs = append(errs, fmt.Errorf("habits.min_name_len (%d) exceeds habits.max_name_len (%d)", h.MinNameLen, h.MaxNameLen))
	}
	return errors.Join(errs...)
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// jsonPath drops the root type name from a validator namespace.
func jsonPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func redact(fe validator.FieldError) any {
	if strings.HasSuffix(fe.Namespace(), ".token") {
		return "<redacted>"
	}
	return fe.Value()
}
