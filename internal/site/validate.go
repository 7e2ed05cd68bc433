// Package site inspects a rendered HTML tree before it is handed to the
// publisher. Publishing an empty or index-less tree would leave the hosted
// documentation blank, so those conditions fail hard; everything else is
// reported as warnings.
package site

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// Report summarizes a validated rendered tree.
type Report struct {
	Pages      int
	Assets     int
	TotalBytes int64
	Warnings   []string
}

// ValidationError indicates the rendered tree is not publishable.
type ValidationError struct {
	Dir    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rendered tree %s not publishable: %s", e.Dir, e.Reason)
}

// Validate walks the rendered output and checks it is publishable.
// The tree must contain at least one HTML page and an index.html at the
// root. HTML files that fail to parse are reported as warnings; the parser
// is lenient, so a parse failure usually means a truncated write.
func Validate(dir string) (*Report, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("rendered tree: %w", err)
	}
	if !info.IsDir() {
		return nil, &ValidationError{Dir: dir, Reason: "not a directory"}
	}

	report := &Report{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Generator internals never belong on the published branch.
			if d.Name() == ".doctrees" || d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		report.TotalBytes += fi.Size()

		if strings.EqualFold(filepath.Ext(path), ".html") {
			report.Pages++
			if warn := checkPage(path); warn != "" {
				report.Warnings = append(report.Warnings, warn)
			}
			return nil
		}
		report.Assets++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk rendered tree: %w", err)
	}

	if report.Pages == 0 && report.Assets == 0 {
		return nil, &ValidationError{Dir: dir, Reason: "tree is empty"}
	}
	if report.Pages == 0 {
		return nil, &ValidationError{Dir: dir, Reason: "no HTML pages in output"}
	}
	if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
		return nil, &ValidationError{Dir: dir, Reason: "missing index.html"}
	}

	report.Warnings = append(report.Warnings, AuditLinks(dir)...)
	return report, nil
}

// checkPage parses a single page and returns a warning string for
// suspicious content, or "" when the page looks fine.
func checkPage(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Sprintf("%s: %v", path, err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return fmt.Sprintf("%s: parse failed: %v", path, err)
	}
	if !hasElement(doc, "body") {
		return fmt.Sprintf("%s: no <body> element", path)
	}
	return ""
}

func hasElement(n *html.Node, name string) bool {
	if n.Type == html.ElementNode && n.Data == name {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasElement(c, name) {
			return true
		}
	}
	return false
}
