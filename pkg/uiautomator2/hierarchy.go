package uiautomator2

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// TopLevelPackages returns the package of every root window in a page
// source dump, in document order. Root windows are the direct children of
// the <hierarchy> element; both the uiautomator dump format (class name as
// tag) and the <node> format are accepted.
func TopLevelPackages(source string) ([]string, error) {
	decoder := xml.NewDecoder(strings.NewReader(source))

	var packages []string
	depth := 0
	rootDepth := -1

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse page source: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			if rootDepth == -1 && t.Name.Local == "hierarchy" {
				rootDepth = depth
				continue
			}
			// Some dumps omit the hierarchy wrapper
			if rootDepth == -1 && depth == 1 {
				rootDepth = 0
			}
			if depth == rootDepth+1 {
				packages = append(packages, attr(t, "package"))
			}
		case xml.EndElement:
			depth--
		}
	}

	return packages, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// HasTopLevelWindow reports whether a root window belonging to pkg is
// currently on screen.
func (c *Client) HasTopLevelWindow(pkg string) (bool, error) {
	source, err := c.Source()
	if err != nil {
		return false, err
	}
	packages, err := TopLevelPackages(source)
	if err != nil {
		return false, err
	}
	for _, p := range packages {
		if p == pkg {
			return true, nil
		}
	}
	return false, nil
}
