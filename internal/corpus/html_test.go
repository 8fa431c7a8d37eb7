package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const samplePage = `<html><head><title>Laleli Mosque</title><style>body{}</style></head>
<body><nav>Home | About</nav>
<p>The Laleli Mosque is an 18th-century Ottoman imperial mosque.</p>
<p>It is located in Laleli, Fatih, Istanbul, Turkey. It was built by Sultan Mustafa III.</p>
<script>var x = "Not a sentence that should appear.";</script>
<p>Short.</p>
<footer>Copyright notice for the whole site.</footer>
</body></html>`

func TestParseHTML(t *testing.T) {
	doc, err := ParseHTML(strings.NewReader(samplePage), 2)
	if err != nil {
		t.Fatalf("ParseHTML failed: %v", err)
	}

	if doc.Title != "Laleli Mosque" {
		t.Errorf("Expected title Laleli Mosque, got %q", doc.Title)
	}
	if len(doc.Groups) != 2 {
		t.Fatalf("Expected 2 groups of up to 2 sentences, got %d: %v", len(doc.Groups), doc.Groups)
	}
	if len(doc.Groups[0]) != 2 || len(doc.Groups[1]) != 1 {
		t.Errorf("Unexpected grouping: %v", doc.Groups)
	}

	joined := strings.Join(doc.Groups[0], " ") + strings.Join(doc.Groups[1], " ")
	for _, banned := range []string{"Not a sentence", "Copyright", "Home | About", "body{}"} {
		if strings.Contains(joined, banned) {
			t.Errorf("Expected %q to be stripped, got %q", banned, joined)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("Giuseppe Verdi was an Italian opera composer.  Ambroise Thomas was French!   Ok.")
	if len(got) != 2 {
		t.Fatalf("Expected 2 sentences, got %d: %v", len(got), got)
	}
	if got[1] != "Ambroise Thomas was French!" {
		t.Errorf("Unexpected second sentence: %q", got[1])
	}
}

func TestGroupSentences(t *testing.T) {
	groups := groupSentences([]string{"a", "b", "c"}, 0)
	if len(groups) != 3 {
		t.Errorf("Expected n<=0 to mean one sentence per group, got %v", groups)
	}

	groups = groupSentences([]string{"a", "b", "c"}, 2)
	groups[0] = append(groups[0], "x")
	if groups[1][0] != "c" {
		t.Error("Appending to a group must not overwrite the next one")
	}
}

func TestHTMLLoader_Directory(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "b.html"), []byte(`<p>Second file has one long sentence here.</p>`), 0644)
	_ = os.WriteFile(filepath.Join(dir, "a.htm"), []byte(`<p>First file has one long sentence here.</p>`), 0644)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`ignored entirely by the loader.`), 0644)

	docs, err := (&HTMLLoader{Path: dir, SentencesPerChunk: 3}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(docs))
	}
	if docs[0].Title != "a" || docs[1].Title != "b" {
		t.Errorf("Expected name order with file-name titles, got %q, %q", docs[0].Title, docs[1].Title)
	}
}
