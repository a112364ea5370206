package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrNoFilePath = errors.New("no file path provided")

// LoadYamlFile flattens a YAML file into environment variables. Nested keys are
// joined with "_" and upper-cased, so
//
//	dispatch:
//	  radius_km: 4
//
// becomes DISPATCH_RADIUS_KM=4. Variables already present in the environment win.
func LoadYamlFile(filepath string) error {
	if filepath == "" {
		return ErrNoFilePath
	}

	file, err := os.Open(filepath)
	if err != nil {
		return fmt.Errorf("could not open YAML file: %w", err)
	}
	defer file.Close()

	vars, err := flattenYaml(file)
	if err != nil {
		return err
	}

	for key, value := range vars {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("could not set env var %s: %w", key, err)
		}
	}
	return nil
}

type section struct {
	indent int
	name   string
}

// flattenYaml understands the subset used by config files: nested maps, scalars,
// inline lists ("[a, b]"), trailing comments and ${VAR:-default} substitution.
func flattenYaml(r io.Reader) (map[string]string, error) {
	vars := make(map[string]string)
	var stack []section

	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := stripComment(scanner.Text())
		content := strings.TrimSpace(line)
		if content == "" {
			continue
		}

		indent := len(line) - len(strings.TrimLeft(line, " "))
		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}

		key, value, ok := strings.Cut(content, ":")
		if !ok {
			return nil, fmt.Errorf("yaml line %d: expected key: value", lineNo)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if value == "" {
			stack = append(stack, section{indent: indent, name: key})
			continue
		}

		parts := make([]string, 0, len(stack)+1)
		for _, s := range stack {
			parts = append(parts, s.name)
		}
		parts = append(parts, key)

		vars[strings.ToUpper(strings.Join(parts, "_"))] = scalar(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading YAML file: %w", err)
	}
	return vars, nil
}

func scalar(value string) string {
	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		items := strings.Split(value[1:len(value)-1], ",")
		for i, item := range items {
			items[i] = scalar(strings.TrimSpace(item))
		}
		return strings.Join(items, ",")
	}

	value = strings.Trim(value, `"'`)

	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		name, def, _ := strings.Cut(value[2:len(value)-1], ":-")
		if env := os.Getenv(strings.TrimSpace(name)); env != "" {
			return env
		}
		return strings.TrimSpace(def)
	}
	return value
}

// stripComment drops a " #" comment that is not inside quotes.
func stripComment(line string) string {
	var quote rune
	for i, ch := range line {
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '#' && (i == 0 || line[i-1] == ' ' || line[i-1] == '\t'):
			return line[:i]
		}
	}
	return line
}
