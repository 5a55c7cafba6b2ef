// File: internal/profile/profile.go
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/applypilot-cli/internal/config"
)

// Profile is the static candidate identity assembled once per run and shared
// read-only by every application attempt.
type Profile struct {
	ResumeText      string
	CoverLetterText string
	ResumePath      string
	CoverLetterPath string

	Phone  string
	Salary string

	// Essential maps question keywords to identity answers. A question that
	// matches one of these never goes to the language model, so identity
	// fields stay consistent across applications.
	Essential map[string]string
	// Predefined maps question keywords to canned answers used for radio
	// groups and as deterministic gateway fallbacks.
	Predefined map[string]string

	CountryToken  string
	DialCode      string
	FallbackTitle string
}

// Load assembles the profile from configuration and local documents. A
// missing or unreadable cover letter degrades to empty text; the resume is
// required only when a path is configured.
func Load(cfg config.ProfileConfig, logger *zap.Logger) (*Profile, error) {
	log := logger.Named("profile")

	p := &Profile{
		Phone:         cfg.Phone,
		Salary:        cfg.Salary,
		Essential:     cloneMap(cfg.Essential),
		Predefined:    cloneMap(cfg.Predefined),
		CountryToken:  strings.ToLower(cfg.CountryToken),
		DialCode:      cfg.DialCode,
		FallbackTitle: cfg.FallbackTitle,
	}

	// Identity answers derived from scalar config fields, unless the map
	// already pins them explicitly.
	setIfAbsent(p.Essential, "phone", cfg.Phone)
	setIfAbsent(p.Essential, "mobile", cfg.Phone)
	setIfAbsent(p.Predefined, "phone", cfg.Phone)
	setIfAbsent(p.Predefined, "salary", cfg.Salary)

	if cfg.Documents.Resume != "" {
		path, err := expandPath(cfg.Documents.Resume)
		if err != nil {
			return nil, fmt.Errorf("resolving resume path: %w", err)
		}
		p.ResumePath = path

		text, err := readDocument(path)
		if err != nil {
			return nil, fmt.Errorf("extracting resume text: %w", err)
		}
		p.ResumeText = text
		log.Info("Resume text extracted", zap.String("path", path), zap.Int("chars", len(text)))
	}

	if cfg.Documents.CoverLetter != "" {
		path, err := expandPath(cfg.Documents.CoverLetter)
		if err != nil {
			return nil, fmt.Errorf("resolving cover letter path: %w", err)
		}
		p.CoverLetterPath = path

		text, err := readDocument(path)
		if err != nil {
			// The cover letter is optional; most portals never ask for it.
			log.Warn("Could not read cover letter, continuing without it",
				zap.String("path", path), zap.Error(err))
		} else {
			p.CoverLetterText = text
		}
	}

	return p, nil
}

// EssentialAnswer returns the identity answer for a question, matching the
// essential keyword map by substring, and whether one matched.
func (p *Profile) EssentialAnswer(question string) (string, bool) {
	return matchKeyword(p.Essential, question)
}

// PredefinedAnswer returns the canned answer for a question, matching the
// predefined keyword map by substring, and whether one matched.
func (p *Profile) PredefinedAnswer(question string) (string, bool) {
	return matchKeyword(p.Predefined, question)
}

func matchKeyword(m map[string]string, question string) (string, bool) {
	q := strings.ToLower(question)
	// Longest keyword wins so "first name" beats a generic "name" entry, and
	// ties break lexicographically to keep matching deterministic.
	keys := make([]string, 0, len(m))
	for key := range m {
		if key != "" && m[key] != "" {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, key := range keys {
		if strings.Contains(q, strings.ToLower(key)) {
			return m[key], true
		}
	}
	return "", false
}

func readDocument(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return extractPDFText(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func expandPath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(expanded), nil
}

func setIfAbsent(m map[string]string, key, value string) {
	if value == "" {
		return
	}
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
