package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentrt/runtime/pkg/config"
)

// ValidateCmd validates one or more ADL agent files (§6.1/§4.4), or
// every file in a directory when a directory is given.
type ValidateCmd struct {
	Path   string `arg:"" name:"path" help:"ADL file or directory of ADL files." type:"path"`
	Format string `short:"f" help:"Output format: compact, json." default:"compact" enum:"compact,json"`
}

type validationResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	files, err := c.resolveFiles()
	if err != nil {
		return err
	}

	var results []validationResult
	failed := false
	for _, f := range files {
		res := validateOne(f)
		if !res.Valid {
			failed = true
		}
		results = append(results, res)
	}

	switch c.Format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return fmt.Errorf("encoding results: %w", err)
		}
	default:
		for _, r := range results {
			if r.Valid {
				fmt.Printf("%s: valid\n", r.File)
			} else {
				fmt.Printf("%s: invalid: %s\n", r.File, r.Error)
			}
			for _, w := range r.Warnings {
				fmt.Printf("%s: warning: %s\n", r.File, w)
			}
		}
	}

	if failed {
		return fmt.Errorf("one or more agent files failed validation")
	}
	return nil
}

func (c *ValidateCmd) resolveFiles() ([]string, error) {
	info, err := os.Stat(c.Path)
	if err != nil {
		return nil, fmt.Errorf("agentrt: %w", err)
	}
	if !info.IsDir() {
		return []string{c.Path}, nil
	}

	entries, err := os.ReadDir(c.Path)
	if err != nil {
		return nil, fmt.Errorf("agentrt: reading %s: %w", c.Path, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
			files = append(files, filepath.Join(c.Path, e.Name()))
		}
	}
	return files, nil
}

func validateOne(path string) validationResult {
	res := validationResult{File: path}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	doc, err := config.ParseDocument(data)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	if err := doc.ValidateShape(); err != nil {
		res.Error = err.Error()
		return res
	}
	if err := doc.ValidateReferences(); err != nil {
		res.Error = err.Error()
		return res
	}

	res.Valid = true
	res.Warnings = doc.Warnings(nil)
	return res
}
