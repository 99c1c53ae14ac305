package rule

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jward/treegrep/internal/runtime"
)

// Load reads one YAML file. A file may hold several documents separated by
// "---"; each is one rule.
func Load(path string, rt *runtime.Runtime) ([]*Compiled, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rule: reading %s: %w", path, err)
	}
	return Parse(data, path, rt)
}

// Parse decodes and compiles every document in data. path is only used in
// error messages.
func Parse(data []byte, path string, rt *runtime.Runtime) ([]*Compiled, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // reject typos such as "patern:"

	var out []*Compiled
	seen := make(map[string]bool)
	for i := 0; ; i++ {
		var r Rule
		err := decoder.Decode(&r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &Error{Path: path, Err: fmt.Errorf("document %d: %w", i, err)}
		}
		if r.ID == "" && r.Language == "" && r.Rule.isZero() {
			// Empty document, e.g. a trailing "---".
			continue
		}

		c, err := r.Compile(rt)
		if err != nil {
			return nil, &Error{Path: path, ID: r.ID, Err: err}
		}
		if seen[c.ID] {
			return nil, &Error{Path: path, ID: c.ID, Err: ErrDuplicateID}
		}
		seen[c.ID] = true
		c.Path = path
		out = append(out, c)
	}
	return out, nil
}

// LoadDir loads every .yml and .yaml file under dir, in path order. Rule ids
// must be unique across the whole directory.
func LoadDir(dir string, rt *runtime.Runtime) ([]*Compiled, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yml", ".yaml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rule: walking %s: %w", dir, err)
	}
	sort.Strings(paths)

	var out []*Compiled
	owner := make(map[string]string)
	for _, path := range paths {
		rules, err := Load(path, rt)
		if err != nil {
			return nil, err
		}
		for _, r := range rules {
			if prev, ok := owner[r.ID]; ok {
				return nil, &Error{Path: path, ID: r.ID, Err: fmt.Errorf("%w (first defined in %s)", ErrDuplicateID, prev)}
			}
			owner[r.ID] = path
		}
		out = append(out, rules...)
	}
	return out, nil
}

// LoadPath loads a single file or a directory of rule files.
func LoadPath(path string, rt *runtime.Runtime) ([]*Compiled, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("rule: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path, rt)
	}
	return Load(path, rt)
}

func (n *Node) isZero() bool {
	return n.Pattern == "" && n.Kind == "" && n.Regex == "" &&
		len(n.All) == 0 && len(n.Any) == 0 &&
		n.Not == nil && n.Has == nil && n.Inside == nil
}
