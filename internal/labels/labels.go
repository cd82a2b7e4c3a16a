// Package labels loads class-name vocabularies for detection models.
//
// Accepted sources:
//   - plain text, one label per line (blank lines and '#' comments ignored)
//   - Ultralytics dataset descriptors (.yaml/.yml) with a `names` list or id->name map
//   - JSON, either a bare array or an object with a `names` field
package labels

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"detectd/internal/common/fsutil"
)

// Load reads a vocabulary from path. An empty path yields the COCO classes.
func Load(path string) ([]string, error) {
	if path == "" {
		return COCO(), nil
	}
	path, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	var out []string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		out, err = parseDescriptor(b, yaml.Unmarshal)
	case ".json":
		out, err = parseJSON(b)
	default:
		out = parseText(b)
	}
	if err != nil {
		return nil, fmt.Errorf("parse labels %s: %w", path, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("labels %s: no labels found", path)
	}
	return out, nil
}

// Index maps each label to its class id.
func Index(labels []string) map[string]int {
	m := make(map[string]int, len(labels))
	for i, l := range labels {
		m[l] = i
	}
	return m
}

func parseText(b []byte) []string {
	var out []string
	s := bufio.NewScanner(bytes.NewReader(b))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func parseJSON(b []byte) ([]string, error) {
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		return arr, nil
	}
	return parseDescriptor(b, json.Unmarshal)
}

// descriptor is the subset of an Ultralytics dataset file we care about.
// `names` is either a list or a map keyed by class id.
type descriptor struct {
	Names any `json:"names" yaml:"names"`
	NC    int `json:"nc" yaml:"nc"`
}

func parseDescriptor(b []byte, unmarshal func([]byte, any) error) ([]string, error) {
	var d descriptor
	if err := unmarshal(b, &d); err != nil {
		return nil, err
	}
	var (
		out []string
		err error
	)
	switch v := d.Names.(type) {
	case nil:
		return nil, fmt.Errorf("missing names")
	case []any:
		for _, n := range v {
			out = append(out, fmt.Sprint(n))
		}
	case map[string]any:
		raw := make(map[any]any, len(v))
		for k, n := range v {
			raw[k] = n
		}
		if out, err = namesFromMap(raw); err != nil {
			return nil, err
		}
	case map[any]any:
		// yaml.v3 produces this shape when keys are integers
		if out, err = namesFromMap(v); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported names type %T", d.Names)
	}
	if d.NC > 0 && d.NC != len(out) {
		return nil, fmt.Errorf("nc=%d does not match %d names", d.NC, len(out))
	}
	return out, nil
}

func namesFromMap(m map[any]any) ([]string, error) {
	ids := make(map[int]string, len(m))
	for k, n := range m {
		var id int
		if _, err := fmt.Sscanf(fmt.Sprint(k), "%d", &id); err != nil || id < 0 {
			return nil, fmt.Errorf("names key %v is not a class id", k)
		}
		ids[id] = fmt.Sprint(n)
	}
	return denseFromIDs(ids), nil
}

// denseFromIDs orders names by class id. Gaps are filled with the numeric id
// so indices keep lining up with model outputs.
func denseFromIDs(ids map[int]string) []string {
	max := -1
	for k := range ids {
		if k > max {
			max = k
		}
	}
	out := make([]string, max+1)
	for i := range out {
		if n, ok := ids[i]; ok {
			out[i] = n
		} else {
			out[i] = fmt.Sprint(i)
		}
	}
	return out
}
