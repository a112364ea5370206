package configparser

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var ErrNotStructPointer = errors.New("config must be a non-nil pointer to a struct")

var durationType = reflect.TypeOf(time.Duration(0))

// LoadAndParseYaml loads the YAML file into the environment and fills cfg from it.
// A missing file is not an error: defaults and the process environment still apply.
func LoadAndParseYaml(filepath string, cfg any) error {
	if err := LoadYamlFile(filepath); err != nil && !errors.Is(err, ErrNoFilePath) && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return ParseEnv(cfg)
}

// ParseEnv fills exported fields tagged with `env:"NAME"` from the environment,
// falling back to the `default:"..."` tag. Nested structs are walked recursively.
func ParseEnv(cfg any) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return ErrNotStructPointer
	}
	return parseStruct(v.Elem())
}

func parseStruct(v reflect.Value) error {
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		fv := v.Field(i)
		if !field.IsExported() {
			continue
		}

		key, hasKey := field.Tag.Lookup("env")
		if !hasKey {
			if fv.Kind() == reflect.Struct && field.Type != durationType {
				if err := parseStruct(fv); err != nil {
					return err
				}
			}
			continue
		}

		raw, ok := os.LookupEnv(key)
		if !ok || raw == "" {
			raw, ok = field.Tag.Lookup("default")
			if !ok {
				continue
			}
		}

		if err := setValue(fv, raw); err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
	}
	return nil
}

func setValue(fv reflect.Value, raw string) error {
	if fv.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	case reflect.Slice:
		if fv.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", fv.Type())
		}
		parts := strings.Split(raw, ",")
		out := reflect.MakeSlice(fv.Type(), 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = reflect.Append(out, reflect.ValueOf(p).Convert(fv.Type().Elem()))
			}
		}
		fv.Set(out)
	default:
		return fmt.Errorf("unsupported type %s", fv.Type())
	}
	return nil
}
