package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTTPFetcher downloads a page and returns the text of its body element.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

func NewHTTPFetcher(cfg Config, logger *zap.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

func (f *HTTPFetcher) FetchText(ctx context.Context, url string) (string, error) {
	body, err := getPage(ctx, f.client, f.userAgent, url)
	if err != nil {
		return "", err
	}
	defer body.Close()

	doc, err := html.Parse(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML from %s: %w", url, err)
	}

	text := CollapseWhitespace(BodyText(doc))

	f.logger.Debug("Page fetched",
		zap.String("url", url),
		zap.Int("text_length", len(text)))

	return text, nil
}

// BodyText concatenates the text nodes under <body>, skipping script,
// style, noscript and template elements.
func BodyText(doc *html.Node) string {
	body := findElement(doc, atom.Body)
	if body == nil {
		return ""
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		// Block-level boundaries would otherwise glue words together.
		if n.Type == html.ElementNode && blockElements[n.DataAtom] {
			sb.WriteByte(' ')
		}
	}
	walk(body)

	return sb.String()
}

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Td: true, atom.Th: true, atom.Tr: true, atom.Ul: true,
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
