// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks the shared resource files for missing or orphaned
// message ids. It collects ids used by Go code (T calls, display and
// errmsg struct tags) and by view templates ({{T "id"}}) and compares them
// against SharedResource.<culture>.yaml.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Location stores the file and line number of a found string.
type Location struct {
	Filepath string
	Line     int
}

const (
	resourcesDir  = "internal/i18n/Resources"
	primaryLocale = "SharedResource.en.yaml"
	projectRoot   = "."
)

var (
	goLiteralRe = regexp.MustCompile(`"([^"\n]*)"`)
	templateTRe = regexp.MustCompile(`\{\{-?\s*T\s+"([^"]+)"`)
	messageIDRe = regexp.MustCompile(`(?:^|[=\s])([A-Za-z][A-Za-z]*\.(?:[A-Za-z][A-Za-z.]*)?)$`)
)

// usage is what the source tree refers to: full ids and id prefixes built
// by concatenation (e.g. "identity." + code).
type usage struct {
	keys     map[string][]Location
	prefixes map[string]struct{}
}

func (u *usage) covers(key string) bool {
	if _, ok := u.keys[key]; ok {
		return true
	}
	for p := range u.prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func main() {
	fmt.Println("🔍 Running i18n linter...")

	used, err := findUsedKeys(projectRoot)
	if err != nil {
		fmt.Printf("❌ Error finding used keys: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Found %d message ids used in code and views.\n", len(used.keys))

	localeFiles, err := filepath.Glob(filepath.Join(resourcesDir, "SharedResource.*.yaml"))
	if err != nil {
		fmt.Printf("❌ Error finding resource files: %v\n", err)
		os.Exit(1)
	}
	primaryKeys, err := loadKeysFromLocale(filepath.Join(resourcesDir, primaryLocale))
	if err != nil {
		fmt.Printf("❌ Error loading primary resources '%s': %v\n", primaryLocale, err)
		os.Exit(1)
	}
	fmt.Printf("✅ Loaded %d ids from %s.\n\n", len(primaryKeys), primaryLocale)

	undefined := findUndefined(used, primaryKeys)
	orphaned := findOrphaned(used, primaryKeys)
	hasErrors := len(undefined) > 0

	fmt.Println("--- Ids used but not defined in the primary resources ---")
	for _, k := range undefined {
		loc := used.keys[k][0]
		fmt.Printf("  - Undefined: %s (%s:%d)\n", k, loc.Filepath, loc.Line)
	}
	if len(undefined) == 0 {
		fmt.Println("  ✨ None found.")
	}
	fmt.Println()

	fmt.Println("--- Orphaned ids (defined but never used) ---")
	for _, k := range orphaned {
		fmt.Printf("  - Orphaned: %s\n", k)
	}
	if len(orphaned) == 0 {
		fmt.Println("  ✨ None found.")
	}
	fmt.Println()

	fmt.Println("--- Missing translations ---")
	for _, file := range localeFiles {
		if filepath.Base(file) == primaryLocale {
			continue
		}
		fmt.Printf("Checking %s:\n", file)
		secondary, err := loadKeysFromLocale(file)
		if err != nil {
			fmt.Printf("  - ❌ Error loading %s: %v\n", file, err)
			hasErrors = true
			continue
		}
		missing := missingKeys(primaryKeys, secondary)
		for _, k := range missing {
			fmt.Printf("  - Missing: %s\n", k)
		}
		if len(missing) == 0 {
			fmt.Println("  ✨ All ids present.")
		}
		hasErrors = hasErrors || len(missing) > 0
	}

	fmt.Println("\n--- Linter Finished ---")
	switch {
	case hasErrors:
		fmt.Println("❌ Found issues that need to be addressed.")
		os.Exit(1)
	case len(orphaned) > 0:
		fmt.Println("⚠️  Found orphaned ids. Please consider removing them.")
	default:
		fmt.Println("✅ All resource files are consistent!")
	}
}

// findUsedKeys scans .go and .html files under root. Directories named
// tools or starting with an underscore or dot are skipped.
func findUsedKeys(root string) (*usage, error) {
	u := &usage{keys: map[string][]Location{}, prefixes: map[string]struct{}{}}
	add := func(id, path string, line int) {
		if strings.HasSuffix(id, ".") {
			u.prefixes[id] = struct{}{}
			return
		}
		u.keys[id] = append(u.keys[id], Location{Filepath: path, Line: line})
	}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if path != root && (name == "tools" || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		isGo := strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go")
		isView := strings.HasSuffix(path, ".html")
		if !isGo && !isView {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for i, line := range strings.Split(string(content), "\n") {
			if isView {
				for _, m := range templateTRe.FindAllStringSubmatch(line, -1) {
					add(m[1], path, i+1)
				}
				continue
			}
			for _, m := range goLiteralRe.FindAllStringSubmatch(line, -1) {
				if id := messageIDRe.FindStringSubmatch(m[1]); id != nil {
					add(id[1], path, i+1)
				}
			}
		}
		return nil
	})
	return u, err
}

// findUndefined lists used ids missing from primary. Only ids whose section
// (the part before the first dot) exists in primary are considered, which
// keeps host names and package paths out of the report.
func findUndefined(u *usage, primary map[string]struct{}) []string {
	sections := map[string]struct{}{}
	for k := range primary {
		sections[strings.SplitN(k, ".", 2)[0]] = struct{}{}
	}
	var out []string
	for k := range u.keys {
		if _, ok := primary[k]; ok {
			continue
		}
		if _, ok := sections[strings.SplitN(k, ".", 2)[0]]; ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func findOrphaned(u *usage, primary map[string]struct{}) []string {
	var out []string
	for k := range primary {
		if !u.covers(k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func missingKeys(primary, secondary map[string]struct{}) []string {
	var out []string
	for k := range primary {
		if _, ok := secondary[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// loadKeysFromLocale reads a resource file and returns a flat set of ids.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	flattenYAML("", data, keys)
	return keys, nil
}

// flattenYAML converts nested maps into dot-separated ids. Resource files
// are flat today; nesting is accepted so both layouts lint the same.
// go-i18n plural forms (one/other) collapse into their parent id.
func flattenYAML(prefix string, node interface{}, keys map[string]struct{}) {
	switch v := node.(type) {
	case map[string]interface{}:
		if prefix != "" && isPluralMap(v) {
			keys[prefix] = struct{}{}
			return
		}
		for k, val := range v {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			flattenYAML(p, val, keys)
		}
	default:
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
	}
}

func isPluralMap(m map[string]interface{}) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		switch k {
		case "zero", "one", "two", "few", "many", "other", "description":
		default:
			return false
		}
	}
	return true
}
