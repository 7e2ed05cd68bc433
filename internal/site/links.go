package site

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// AuditLinks checks every relative href and src in the rendered tree and
// returns a warning per target that does not exist on disk. Broken internal
// links never fail a publish; the hosted site is still better than none.
func AuditLinks(dir string) []string {
	var warnings []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".html") {
			return err
		}
		for _, target := range pageLinks(p) {
			if !linkResolves(dir, p, target) {
				rel, _ := filepath.Rel(dir, p)
				warnings = append(warnings, fmt.Sprintf("%s: broken link %q", rel, target))
			}
		}
		return nil
	})
	return warnings
}

// pageLinks extracts href and src attribute values from one page.
func pageLinks(file string) []string {
	f, err := os.Open(file)
	if err != nil {
		return nil
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "href" || attr.Key == "src" {
					links = append(links, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

// linkResolves reports whether a link target points at a file inside the
// rendered tree. External URLs, fragments and mailto links pass untouched.
func linkResolves(root, page, target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return true // malformed URLs are the page author's problem
	}
	if u.Scheme != "" || u.Host != "" || strings.HasPrefix(target, "//") {
		return true
	}
	clean := u.Path
	if clean == "" { // pure fragment like #section
		return true
	}

	var full string
	if path.IsAbs(clean) {
		full = filepath.Join(root, filepath.FromSlash(clean))
	} else {
		full = filepath.Join(filepath.Dir(page), filepath.FromSlash(clean))
	}
	// Directory links resolve through their index page.
	if st, err := os.Stat(full); err == nil {
		if st.IsDir() {
			_, err := os.Stat(filepath.Join(full, "index.html"))
			return err == nil
		}
		return true
	}
	return false
}
