package crm

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
)

const csvSource = "csv"

// Accepted header spellings per field, first match wins.
var csvColumns = map[string][]string{
	"id":        {"id", "contact_id"},
	"email":     {"email"},
	"first":     {"firstname", "first_name"},
	"last":      {"lastname", "last_name"},
	"owner":     {"ownerid", "owner_id", "hubspot_owner_id"},
	"lifecycle": {"lifecyclestage", "lifecycle"},
	"modified":  {"lastmodifieddate", "last_modified"},
	"score":     {"score", "lead_score"},
}

// CSVSource reads contacts from a CSV export with a header row. Blank cells
// decode to absent values.
type CSVSource struct {
	path string
}

var _ Source = (*CSVSource)(nil)

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Contacts(ctx context.Context, limit int) ([]domain.Contact, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open contacts csv: %w", err)
	}
	defer f.Close()

	return ReadCSV(ctx, f, limit)
}

// ReadCSV decodes contacts from r. Rows without an id are skipped.
func ReadCSV(ctx context.Context, r io.Reader, limit int) ([]domain.Contact, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []domain.Contact{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	index := columnIndex(header)
	if _, ok := index["id"]; !ok {
		return nil, fmt.Errorf("%w: contacts csv has no id column", domain.ErrValidation)
	}

	contacts := make([]domain.Contact, 0)
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limit > 0 && len(contacts) >= limit {
			break
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		cell := func(field string) string {
			i, ok := index[field]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		id := cell("id")
		if id == "" {
			continue
		}
		c := domain.Contact{
			ID:           id,
			Email:        optionalString(cell("email")),
			FirstName:    optionalString(cell("first")),
			LastName:     optionalString(cell("last")),
			OwnerID:      optionalString(cell("owner")),
			Lifecycle:    optionalString(cell("lifecycle")),
			LastModified: parseTimestamp(cell("modified")),
			Source:       csvSource,
		}
		if raw := cell("score"); raw != "" {
			score, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: invalid score %q", domain.ErrValidation, line, raw)
			}
			// NaN and infinities would break score ordering; treat them as absent.
			if !math.IsNaN(score) && !math.IsInf(score, 0) {
				c.Score = domain.Some(score)
			}
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

func columnIndex(header []string) map[string]int {
	byName := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := byName[key]; !dup {
			byName[key] = i
		}
	}

	index := make(map[string]int, len(csvColumns))
	for field, names := range csvColumns {
		for _, name := range names {
			if i, ok := byName[name]; ok {
				index[field] = i
				break
			}
		}
	}
	return index
}
