// Package markdown extracts link targets from documentation sources so a
// checkout can be audited before the expensive generator run.
package markdown

import (
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Link is one outbound reference found in a markdown document.
type Link struct {
	Target string
	Image  bool
}

// ExtractLinks parses markdown content and returns every link and image
// target in document order.
func ExtractLinks(source []byte) []Link {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var links []Link
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			links = append(links, Link{Target: string(node.Destination)})
		case *ast.Image:
			links = append(links, Link{Target: string(node.Destination), Image: true})
		case *ast.AutoLink:
			links = append(links, Link{Target: string(node.URL(source))})
		}
		return ast.WalkContinue, nil
	})
	return links
}

// AuditSources walks the markdown files under dir and returns a warning for
// every relative link whose target file does not exist in the checkout.
func AuditSources(dir string) []string {
	var warnings []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext != ".md" && ext != ".markdown" {
			return nil
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		for _, link := range ExtractLinks(content) {
			if relativeTargetMissing(p, link.Target) {
				rel, _ := filepath.Rel(dir, p)
				warnings = append(warnings, rel+": broken link "+link.Target)
			}
		}
		return nil
	})
	return warnings
}

func relativeTargetMissing(file, target string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return false
	}
	if u.Path == "" { // fragment-only link
		return false
	}
	full := filepath.Join(filepath.Dir(file), filepath.FromSlash(u.Path))
	_, statErr := os.Stat(full)
	return statErr != nil
}
