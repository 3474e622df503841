// Package config loads configuration structs from YAML files and
// environment variables using `env`, `yaml`, `default` and `required`
// struct tags. Environment variables take precedence over file values,
// defaults fill whatever remains unset.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Validator allows config structs to implement custom validation logic.
// If a config struct implements this interface, validation runs
// automatically after loading.
type Validator interface {
	Validate() error
}

// Load reads configuration from a YAML file (if filepath is non-empty)
// and then overlays environment variables. If allowFileErrors is true,
// file read or parse errors fall back to env-only loading.
func Load[T any](dest *T, filepath string, allowFileErrors bool) error {
	if filepath != "" {
		data, err := os.ReadFile(filepath)
		if err != nil {
			if !allowFileErrors {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, dest); err != nil {
			if !allowFileErrors {
				return fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}
	return LoadFromEnv(dest)
}

// LoadFromEnv populates a configuration struct from environment
// variables only, then applies defaults and checks required fields.
func LoadFromEnv[T any](dest *T) error {
	val := reflect.ValueOf(dest).Elem()

	fromEnv, err := overlayEnv(val, val.Type())
	if err != nil {
		return err
	}

	if err := finalize(val, val.Type(), fromEnv); err != nil {
		// Reset to the zero value so callers never see a half-loaded config.
		var zero T
		*dest = zero
		return err
	}

	if v, ok := any(dest).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}

	return nil
}

// overlayEnv walks the struct recursively and sets fields whose env tag
// resolves to a non-empty variable. It returns the set of fields that
// were populated from the environment so defaults don't clobber them.
func overlayEnv(val reflect.Value, typ reflect.Type) (map[string]bool, error) {
	set := make(map[string]bool)

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			nested, err := overlayEnv(field, fieldType.Type)
			if err != nil {
				return nil, err
			}
			for k, v := range nested {
				set[k] = v
			}
			continue
		}

		tag := fieldType.Tag.Get("env")
		if tag == "" {
			continue
		}
		envVal := os.Getenv(tag)
		if envVal == "" {
			continue
		}

		if err := setField(field, envVal); err != nil {
			return nil, fmt.Errorf("env %s: %w", tag, err)
		}
		set[fieldKey(typ, fieldType)] = true
	}
	return set, nil
}

// finalize applies defaults to zero-valued fields and aggregates errors
// for required fields that remain unset.
func finalize(val reflect.Value, typ reflect.Type, fromEnv map[string]bool) error {
	var result error

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			if err := finalize(field, fieldType.Type, fromEnv); err != nil {
				result = multierror.Append(result, err)
			}
			continue
		}

		defaultTag := fieldType.Tag.Get("default")
		required := isTruthy(fieldType.Tag.Get("required")) && defaultTag == ""

		if field.IsZero() && required {
			result = multierror.Append(result, fmt.Errorf(
				"required field env:%s / yaml:%s is missing",
				fieldType.Tag.Get("env"), fieldType.Tag.Get("yaml")))
			continue
		}

		if field.IsZero() && defaultTag != "" && !fromEnv[fieldKey(typ, fieldType)] {
			if err := setField(field, defaultTag); err != nil {
				result = multierror.Append(result, fmt.Errorf(
					"default for field %s: %w", fieldType.Name, err))
			}
		}
	}
	return result
}

// setField converts the string value to the field's type and assigns it.
func setField(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("failed to convert %q to duration: %w", raw, err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int64:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to convert %q to int: %w", raw, err)
		}
		field.SetInt(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("failed to convert %q to float: %w", raw, err)
		}
		field.SetFloat(v)
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("failed to convert %q to bool: %w", raw, err)
		}
		field.SetBool(v)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		parts := strings.Split(raw, ",")
		slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, p := range parts {
			slice.Index(i).SetString(strings.TrimSpace(p))
		}
		field.Set(slice)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}

func fieldKey(typ reflect.Type, field reflect.StructField) string {
	return typ.Name() + "." + field.Name
}

func isTruthy(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1"
}
