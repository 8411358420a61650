// Package catalog loads variant sets from a directory of YAML or JSON files.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Library maps a variant set name to its ordered variants.
type Library map[string][]domain.Variant

// Sets returns the set names in sorted order.
func (l Library) Sets() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type fileVariant struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	SubjectTemplate string   `json:"subject_template" yaml:"subject_template"`
	BodyTemplate    string   `json:"body_template" yaml:"body_template"`
	SubjectTpl      string   `json:"subject_tpl" yaml:"subject_tpl"`
	BodyTpl         string   `json:"body_tpl" yaml:"body_tpl"`
	Tags            []string `json:"tags" yaml:"tags"`
}

type file struct {
	VariantSet string        `json:"variant_set" yaml:"variant_set"`
	Variants   []fileVariant `json:"variants" yaml:"variants"`
}

// LoadLibrary reads every .yaml, .yml and .json file of dir in name order.
// Files that fail to parse or validate are logged and skipped. A later file
// with the same set name replaces an earlier one.
func LoadLibrary(dir string, logger *zap.Logger) (Library, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create template library dir: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read template library dir: %w", err)
	}

	lib := make(Library)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}

		set, variants, err := loadFile(path, ext)
		if err != nil {
			logger.Warn("skipping invalid template file", zap.String("path", path), zap.Error(err))
			continue
		}
		lib[set] = variants
	}
	return lib, nil
}

// VariantsFor returns the variants of one set, or nil when the set is
// unknown.
func VariantsFor(dir, variantSet string, logger *zap.Logger) ([]domain.Variant, error) {
	lib, err := LoadLibrary(dir, logger)
	if err != nil {
		return nil, err
	}
	return lib[variantSet], nil
}

func loadFile(path, ext string) (string, []domain.Variant, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}

	var f file
	if ext == ".json" {
		err = json.Unmarshal(raw, &f)
	} else {
		err = yaml.Unmarshal(raw, &f)
	}
	if err != nil {
		return "", nil, fmt.Errorf("decode: %w", err)
	}

	set := strings.TrimSpace(f.VariantSet)
	if set == "" {
		set = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	variants := make([]domain.Variant, 0, len(f.Variants))
	seen := make(map[string]bool, len(f.Variants))
	for i, fv := range f.Variants {
		v := domain.Variant{
			ID:              strings.TrimSpace(fv.ID),
			Name:            fv.Name,
			SubjectTemplate: firstNonEmpty(fv.SubjectTemplate, fv.SubjectTpl),
			BodyTemplate:    firstNonEmpty(fv.BodyTemplate, fv.BodyTpl),
			Tags:            fv.Tags,
		}
		if err := v.Validate(); err != nil {
			return "", nil, fmt.Errorf("variant %d: %w", i, err)
		}
		if seen[v.ID] {
			return "", nil, fmt.Errorf("%w: duplicate variant id %q", domain.ErrValidation, v.ID)
		}
		seen[v.ID] = true
		variants = append(variants, v)
	}
	return set, variants, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
