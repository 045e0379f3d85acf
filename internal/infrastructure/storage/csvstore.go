package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"mygovpulse/internal/domain"
	"mygovpulse/internal/ports"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var csvHeader = []string{"author", "timestamp", "text", "lang", "sentiment", "sentiment_score", "summary"}

// CSVStore persists one corpus per source as a delimited table,
// written to a working directory and mirrored to a published directory
// the dashboard serves files from.
type CSVStore struct {
	workDir    string
	publishDir string
	logger     *slog.Logger
}

var _ ports.CorpusStore = (*CSVStore)(nil)

// NewCSVStore wires the two corpus directories.
func NewCSVStore(workDir, publishDir string, logger *slog.Logger) *CSVStore {
	return &CSVStore{workDir: workDir, publishDir: publishDir, logger: logger}
}

// Load reads a persisted corpus, trying the working directory first
// and the published mirror second. A file that is missing or cannot be
// decoded in any tried encoding degrades to an empty corpus.
func (s *CSVStore) Load(filename string) []domain.Comment {
	for _, dir := range []string{s.workDir, s.publishDir} {
		rows := s.loadFile(filepath.Join(dir, filename))
		if len(rows) > 0 {
			return rows
		}
	}
	return nil
}

// Save rewrites the corpus in full, UTF-8 with a byte-order marker,
// score formatted to four decimals, into both directories.
func (s *CSVStore) Save(filename string, rows []domain.Comment) error {
	for _, dir := range []string{s.workDir, s.publishDir} {
		if err := s.saveFile(filepath.Join(dir, filename), rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *CSVStore) saveFile(path string, rows []domain.Comment) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create corpus directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create corpus file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Author,
			row.Timestamp,
			row.Text,
			row.Lang,
			row.Sentiment,
			strconv.FormatFloat(row.SentimentScore, 'f', 4, 64),
			row.Summary,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush corpus: %w", err)
	}
	return nil
}

func (s *CSVStore) loadFile(path string) []domain.Comment {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	decoded, ok := decodeTable(data)
	if !ok {
		s.debug("corpus not decodable in any tried encoding", "path", path)
		return nil
	}
	return decoded
}

// decodeTable tries UTF-8 (with or without marker) and then cp1252.
func decodeTable(data []byte) ([]domain.Comment, bool) {
	trimmed := bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(trimmed) {
		if rows, err := parseRows(bytes.NewReader(trimmed)); err == nil {
			return rows, true
		}
		return nil, false
	}

	reader := transform.NewReader(bytes.NewReader(data), charmap.Windows1252.NewDecoder())
	rows, err := parseRows(reader)
	if err != nil {
		return nil, false
	}
	return rows, true
}

func parseRows(r io.Reader) ([]domain.Comment, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	index := map[string]int{}
	for i, name := range header {
		index[name] = i
	}

	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var rows []domain.Comment
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		score, _ := strconv.ParseFloat(field(record, "sentiment_score"), 64)
		rows = append(rows, domain.Comment{
			Author:         field(record, "author"),
			Timestamp:      field(record, "timestamp"),
			Text:           field(record, "text"),
			Lang:           field(record, "lang"),
			Sentiment:      field(record, "sentiment"),
			SentimentScore: score,
			Summary:        field(record, "summary"),
		})
	}
	return rows, nil
}

func (s *CSVStore) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
