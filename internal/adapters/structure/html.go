package structure

import (
	"io"
	"math"
	"strconv"
	"strings"

	"aidetect/internal/core/geometry"
	"aidetect/internal/core/normalize"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/services/sampler"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Flow lays out elements without a data-rect attribute as stacked full width blocks
type Flow struct {
	Margin     float64
	LineHeight float64
	CharWidth  float64
	Gap        float64
}

// DefaultFlow approximates a 16px body font
var DefaultFlow = Flow{Margin: 16, LineHeight: 24, CharWidth: 8, Gap: 16}

var candidateClasses = []string{"content", "post", "entry", "markdown", "ProseMirror"}

// Candidate reports whether n matches
// article, main, p, div[role=article], .content, .post, .entry, .markdown, .ProseMirror
func Candidate(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Article, atom.Main, atom.P:
		return true
	case atom.Div:
		if attr(n, "role") == "article" {
			return true
		}
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		for _, want := range candidateClasses {
			if c == want {
				return true
			}
		}
	}
	return false
}

// ParseHTML builds a snapshot from a document; nested matches each become a candidate
// boxes come from data-rect="x,y,w,h" when present, otherwise from flow
func ParseHTML(r io.Reader, viewport geometry.Size, flow Flow) (sampler.Snapshot, error) {
	root, err := html.Parse(r)
	if err != nil {
		return sampler.Snapshot{}, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "parse html")
	}
	if flow == (Flow{}) {
		flow = DefaultFlow
	}

	snap := sampler.Snapshot{Viewport: viewport, Candidates: []sampler.Candidate{}}
	y := flow.Margin
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if Candidate(n) {
			text := normalize.Text(innerText(n))
			if text != "" {
				reg, ok := dataRect(n)
				if !ok {
					reg = flow.place(y, len([]rune(text)), viewport.W)
					y = reg.Bottom() + flow.Gap
				}
				snap.Candidates = append(snap.Candidates, sampler.Candidate{Region: reg, Text: text})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return snap, nil
}

func (f Flow) place(y float64, chars int, width float64) geometry.Region {
	w := width - 2*f.Margin
	if w <= f.CharWidth {
		w = 640
	}
	perLine := math.Max(1, math.Floor(w/f.CharWidth))
	lines := math.Ceil(float64(chars) / perLine)
	return geometry.Region{X: f.Margin, Y: y, W: w, H: lines * f.LineHeight}
}

func innerText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
			if n.DataAtom == atom.Br {
				b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.P {
			b.WriteByte('\n')
		}
	}
	walk(n)
	return b.String()
}

func dataRect(n *html.Node) (geometry.Region, bool) {
	raw := attr(n, "data-rect")
	if raw == "" {
		return geometry.Region{}, false
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return geometry.Region{}, false
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Region{}, false
		}
		v[i] = f
	}
	return geometry.Region{X: v[0], Y: v[1], W: v[2], H: v[3]}, true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
