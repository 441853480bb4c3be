package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jimmy12-d/rean-ai/internal/model"
)

// record is one line of a corpus .jsonl file. Concept records sometimes carry
// subject/chapter/topic at the root instead of inside metadata.
type record struct {
	ID         string                 `json:"id"`
	Metadata   map[string]interface{} `json:"metadata"`
	KhmerTitle string                 `json:"khmer_title"`
	Content    string                 `json:"content"`
	Subject    string                 `json:"subject"`
	Chapter    string                 `json:"chapter"`
	Topic      string                 `json:"topic"`
}

// Loader reads line-delimited JSON corpus files from a directory tree and
// partitions them into concept and exercise documents.
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load walks the corpus directory recursively for *.jsonl files. Malformed
// lines are skipped and logged; duplicate ids keep the last record seen.
func (l *Loader) Load(ctx context.Context) (concepts []model.Document, exercises []model.Document, err error) {
	files, err := l.listFiles()
	if err != nil {
		return nil, nil, err
	}
	logger := logutil.GetLogger(ctx)
	if len(files) == 0 {
		logger.Warn("no corpus files found", zap.String("dir", l.dir))
		return nil, nil, nil
	}
	logger.Info("loading corpus", zap.String("dir", l.dir), zap.Int("files", len(files)))

	conceptPos := map[string]int{}
	exercisePos := map[string]int{}
	for _, path := range files {
		if err := l.loadFile(ctx, path, &concepts, conceptPos, &exercises, exercisePos); err != nil {
			return nil, nil, err
		}
	}
	logger.Info("corpus loaded", zap.Int("concepts", len(concepts)), zap.Int("exercises", len(exercises)))
	return concepts, exercises, nil
}

func (l *Loader) listFiles() ([]string, error) {
	if l.dir == "" {
		return nil, nil
	}
	if _, err := os.Stat(l.dir); os.IsNotExist(err) {
		return nil, nil
	}
	var files []string
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus dir: %w", err)
	}
	return files, nil
}

func (l *Loader) loadFile(ctx context.Context, path string,
	concepts *[]model.Document, conceptPos map[string]int,
	exercises *[]model.Document, exercisePos map[string]int) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open corpus file: %w", err)
	}
	defer file.Close()

	logger := logutil.GetLogger(ctx)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			logger.Warn("skipping malformed corpus line",
				zap.String("file", path), zap.Int("line", lineNum), zap.Error(err))
			continue
		}
		doc := rec.toDocument()
		if model.IsExercise(doc.ID, doc.Metadata["type"]) {
			upsert(exercises, exercisePos, doc)
		} else {
			upsert(concepts, conceptPos, doc)
		}
	}
	return scanner.Err()
}

// upsert keeps the first-seen position but lets a later record with the same
// id replace the earlier one.
func upsert(docs *[]model.Document, pos map[string]int, doc model.Document) {
	if doc.ID != "" {
		if i, ok := pos[doc.ID]; ok {
			(*docs)[i] = doc
			return
		}
		pos[doc.ID] = len(*docs)
	}
	*docs = append(*docs, doc)
}

func (r record) toDocument() model.Document {
	text := r.Content
	if r.KhmerTitle != "" {
		text = r.KhmerTitle + "\n" + r.Content
	}
	meta := make(map[string]string, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		switch value := v.(type) {
		case string:
			meta[k] = value
		default:
			meta[k] = fmt.Sprint(value)
		}
	}
	if len(r.Metadata) == 0 {
		// Concept files keep these at the record root.
		if r.Subject != "" {
			meta["subject"] = r.Subject
		}
		if r.Chapter != "" {
			meta["chapter"] = r.Chapter
		}
		if r.Topic != "" {
			meta["topic"] = r.Topic
		}
		if r.KhmerTitle != "" {
			meta["khmer_title"] = r.KhmerTitle
		}
	}
	meta["id"] = r.ID
	return model.Document{ID: r.ID, Text: text, Metadata: meta}
}
