//go:build ignore

// check_boundaries enforces the layer rules of every service under contexts/.
// Run with: go run scripts/check_boundaries.go
package main

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule lists the in-module prefixes a layer may import, relative to its
// service root. Third-party imports are only allowed where thirdParty is set.
type layerRule struct {
	allowed    []string
	thirdParty bool
}

var layerRules = map[string]layerRule{
	"domain":      {allowed: []string{"/domain"}},
	"ports":       {allowed: []string{"/domain", "/ports"}},
	"application": {allowed: []string{"/application", "/domain", "/ports"}},
	"transport":   {allowed: []string{"/transport"}},
}

func main() {
	module, err := modulePath("go.mod")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	violations := collectViolations(module, "contexts")
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File == violations[j].File {
			return violations[i].Line < violations[j].Line
		}
		return violations[i].File < violations[j].File
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func modulePath(goMod string) (string, error) {
	f, err := os.Open(goMod)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "module "); ok {
			return strings.TrimSpace(rest), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%s has no module directive", goMod)
}

func collectViolations(module string, root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		normalized := filepath.ToSlash(path)
		parts := strings.Split(normalized, "/")
		if len(parts) < 4 || parts[0] != "contexts" {
			return nil
		}

		serviceRoot := fmt.Sprintf("%s/contexts/%s/%s", module, parts[1], parts[2])
		violations = append(violations, validateFile(module, path, normalized, parts[3], serviceRoot)...)
		return nil
	})

	return violations
}

func validateFile(module string, path string, normalizedPath string, layer string, serviceRoot string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: normalizedPath, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		add := func(rule string) {
			violations = append(violations, violation{
				File:   normalizedPath,
				Line:   fset.Position(imp.Pos()).Line,
				Import: importPath,
				Rule:   rule,
			})
		}

		if hasPrefix(importPath, module+"/contexts") && !hasPrefix(importPath, serviceRoot) {
			add("cross-service imports are forbidden")
		}

		rule, ok := layerRules[layer]
		if !ok {
			continue
		}
		switch {
		case isStdlib(module, importPath):
		case hasPrefix(importPath, module+"/contracts"):
			if layer == "domain" || layer == "transport" {
				add(layer + " must not depend on event contracts")
			}
		case hasPrefix(importPath, module+"/internal"):
			add(layer + " must not import runtime infrastructure")
		case hasPrefix(importPath, module):
			if !isAllowed(importPath, serviceRoot, rule.allowed) {
				add(layer + " import is outside explicit allowlist")
			}
		case !rule.thirdParty:
			add(layer + " must stay on the standard library")
		}
	}

	return violations
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, serviceRoot string, allowed []string) bool {
	for _, p := range allowed {
		if hasPrefix(importPath, serviceRoot+p) {
			return true
		}
	}
	return false
}

func isStdlib(module string, importPath string) bool {
	if hasPrefix(importPath, module) {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
