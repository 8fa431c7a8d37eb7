package corpus

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppiankov/entailrag/internal/model"
)

// HotpotLoader reads HotpotQA records from a JSON array or JSON Lines file
// Both the Hugging Face layout ({"title":[...],"sentences":[[...]]}) and the
// original distractor layout ([[title, [sentences...]], ...]) are accepted
type HotpotLoader struct {
	Path       string
	MaxRecords int // 0 = all
}

type hotpotRecord struct {
	ID       string          `json:"id"`
	Question string          `json:"question"`
	Answer   string          `json:"answer"`
	Context  json.RawMessage `json:"context"`
}

type hfContext struct {
	Title     []string   `json:"title"`
	Sentences [][]string `json:"sentences"`
}

// Load reads the file and converts each record's context into one document per paragraph
func (l *HotpotLoader) Load(ctx context.Context) ([]model.Document, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.Path, err)
	}

	records, err := decodeRecords(data, l.MaxRecords)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", l.Path, err)
	}

	var docs []model.Document
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recDocs, err := recordDocuments(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		docs = append(docs, recDocs...)
	}

	return docs, nil
}

// LoadQuestions reads the question/answer pairs of the same file, up to limit records
func LoadQuestions(path string, limit int) ([]model.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	records, err := decodeRecords(data, limit)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	questions := make([]model.Question, 0, len(records))
	for i, rec := range records {
		id := rec.ID
		if id == "" {
			id = fmt.Sprintf("q%d", i)
		}
		questions = append(questions, model.Question{ID: id, Question: rec.Question, Answer: rec.Answer})
	}
	return questions, nil
}

func decodeRecords(data []byte, limit int) ([]hotpotRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var records []hotpotRecord
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(trimmed))
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			raw := bytes.TrimSpace(scanner.Bytes())
			if len(raw) == 0 {
				continue
			}
			var rec hotpotRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			records = append(records, rec)
			if limit > 0 && len(records) >= limit {
				break
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func recordDocuments(rec hotpotRecord) ([]model.Document, error) {
	if len(rec.Context) == 0 {
		return nil, nil
	}

	var hf hfContext
	if err := json.Unmarshal(rec.Context, &hf); err == nil {
		docs := make([]model.Document, 0, len(hf.Sentences))
		for j, sentences := range hf.Sentences {
			doc := model.Document{Groups: [][]string{sentences}}
			if j < len(hf.Title) {
				doc.Title = hf.Title[j]
			}
			docs = append(docs, doc)
		}
		return docs, nil
	}

	// Distractor layout: [[title, [s1, s2, ...]], ...]
	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(rec.Context, &pairs); err != nil {
		return nil, fmt.Errorf("unrecognized context layout: %w", err)
	}
	docs := make([]model.Document, 0, len(pairs))
	for _, p := range pairs {
		var title string
		var sentences []string
		if err := json.Unmarshal(p[0], &title); err != nil {
			return nil, fmt.Errorf("context title: %w", err)
		}
		if err := json.Unmarshal(p[1], &sentences); err != nil {
			return nil, fmt.Errorf("context sentences: %w", err)
		}
		docs = append(docs, model.Document{Title: title, Groups: [][]string{sentences}})
	}
	return docs, nil
}
