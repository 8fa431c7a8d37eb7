package corpus

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/entailrag/internal/model"
	"golang.org/x/net/html"
)

// HTMLLoader reads one HTML file or every *.html / *.htm file in a directory
type HTMLLoader struct {
	Path              string
	SentencesPerChunk int
}

// Load parses each file into a document of sentence groups, files in name order
func (l *HTMLLoader) Load(ctx context.Context) ([]model.Document, error) {
	paths, err := htmlFiles(l.Path)
	if err != nil {
		return nil, err
	}

	docs := make([]model.Document, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		doc, err := ParseHTML(f, l.SentencesPerChunk)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		if doc.Title == "" {
			doc.Title = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func htmlFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", path, err)
	}
	var paths []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".html" && ext != ".htm") {
			continue
		}
		paths = append(paths, filepath.Join(path, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// ParseHTML extracts visible text and groups consecutive sentences into chunks
func ParseHTML(r io.Reader, sentencesPerChunk int) (model.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return model.Document{}, err
	}

	sentences := splitSentences(extractVisibleText(root))
	return model.Document{
		Title:  extractTitle(root),
		Groups: groupSentences(sentences, sentencesPerChunk),
	}, nil
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles and page chrome
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head", "nav", "footer":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

func extractTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := extractTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// splitSentences splits text into sentences on terminators followed by whitespace
// Fragments shorter than minSentenceLen (menu labels, captions) are dropped
func splitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")

	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		if len(sentence) >= minSentenceLen {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			flush()
		}
	}
	if current.Len() > 0 {
		flush()
	}

	return sentences
}

const minSentenceLen = 20

// groupSentences packs consecutive sentences into groups of at most n (n <= 0 means 1)
func groupSentences(sentences []string, n int) [][]string {
	if n <= 0 {
		n = 1
	}
	groups := make([][]string, 0, (len(sentences)+n-1)/n)
	for start := 0; start < len(sentences); start += n {
		end := min(start+n, len(sentences))
		groups = append(groups, sentences[start:end:end])
	}
	return groups
}
