package parse

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Sriram-PR/logo-crawler/pkg/utils"
)

// Image holds the attributes of an <img> element that the logo heuristic looks at
type Image struct {
	Alt     string   // Accessibility label
	Classes []string // Class tokens, split on whitespace
	ID      string
	Src     string
	HasSrc  bool // False when the element carries no src attribute at all
}

// Document is a parsed page. It is read-only once built.
type Document struct {
	doc *goquery.Document
}

// Parse builds a Document from raw HTML bytes
// Malformed markup is recovered by the HTML5 parser; only reader failures return an error
func Parse(body []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: HTML parse: %w", utils.ErrParsing, err)
	}
	return &Document{doc: doc}, nil
}

// Images returns every <img> element in document order
func (d *Document) Images() []Image {
	if d == nil || d.doc == nil {
		return nil
	}
	var images []Image
	d.doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, hasSrc := s.Attr("src")
		alt, _ := s.Attr("alt")
		id, _ := s.Attr("id")
		class, _ := s.Attr("class")
		images = append(images, Image{
			Alt:     alt,
			Classes: strings.Fields(class),
			ID:      id,
			Src:     strings.TrimSpace(src),
			HasSrc:  hasSrc,
		})
	})
	return images
}

// Links returns the href of every <a href> element in document order, unresolved
func (d *Document) Links() []string {
	if d == nil || d.doc == nil {
		return nil
	}
	var links []string
	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		links = append(links, href)
	})
	return links
}

// Title returns the trimmed <title> text, used for log context only
func (d *Document) Title() string {
	if d == nil || d.doc == nil {
		return ""
	}
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}
