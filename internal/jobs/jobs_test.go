// File: internal/jobs/jobs_test.go
package jobs

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/applypilot-cli/api/schemas"
	"github.com/xkilldash9x/applypilot-cli/internal/config"
)

// fakeElement covers the element operations the job loop touches.
type fakeElement struct {
	text     string
	attrs    map[string]string
	children map[string][]schemas.Element
	clicks   int
	typed    []string
	cleared  int
}

var _ schemas.Element = (*fakeElement)(nil)

func newFakeElement() *fakeElement {
	return &fakeElement{
		attrs:    make(map[string]string),
		children: make(map[string][]schemas.Element),
	}
}

func (f *fakeElement) Text(context.Context) (string, error) { return f.text, nil }
func (f *fakeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	value, ok := f.attrs[name]
	return value, ok, nil
}
func (f *fakeElement) OuterHTML(context.Context) (string, error) { return "", nil }
func (f *fakeElement) Query(ctx context.Context, selector string) (schemas.Element, error) {
	matches := f.children[selector]
	if len(matches) == 0 {
		return nil, schemas.ErrNoElement
	}
	return matches[0], nil
}
func (f *fakeElement) QueryAll(_ context.Context, selector string) ([]schemas.Element, error) {
	return f.children[selector], nil
}
func (f *fakeElement) Click(context.Context) error { f.clicks++; return nil }
func (f *fakeElement) Clear(context.Context) error { f.cleared++; return nil }
func (f *fakeElement) Type(_ context.Context, text string) error {
	f.typed = append(f.typed, text)
	return nil
}
func (f *fakeElement) SetFiles(context.Context, ...string) error     { return nil }
func (f *fakeElement) SelectOption(context.Context, string) error    { return nil }
func (f *fakeElement) Visible(context.Context) (bool, error)         { return true, nil }
func (f *fakeElement) Enabled(context.Context) (bool, error)         { return true, nil }
func (f *fakeElement) Checked(context.Context) (bool, error)         { return false, nil }

type fakePortal struct {
	elements  map[string][]schemas.Element
	location  string
	navigated []string
	scrolls   int
}

var _ Portal = (*fakePortal)(nil)

func newFakePortal() *fakePortal {
	return &fakePortal{elements: make(map[string][]schemas.Element)}
}

func (p *fakePortal) QueryAll(_ context.Context, selector string) ([]schemas.Element, error) {
	return p.elements[selector], nil
}
func (p *fakePortal) ButtonsByText(context.Context, string) ([]schemas.Element, error) {
	return nil, nil
}
func (p *fakePortal) Content(context.Context) (string, error) { return "", nil }
func (p *fakePortal) Settle(context.Context, time.Duration)   {}
func (p *fakePortal) Navigate(_ context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	return nil
}
func (p *fakePortal) Location(context.Context) (string, error) { return p.location, nil }
func (p *fakePortal) ScrollTo(context.Context, bool) error {
	p.scrolls++
	return nil
}

func TestBuildSearchURL(t *testing.T) {
	built := BuildSearchURL("Go Developer", "Chennai, India", []int{2, 3})

	assert.True(t, strings.HasPrefix(built, searchBaseURL+"?"))
	assert.Contains(t, built, "keywords=Go+Developer")
	assert.Contains(t, built, "location=Chennai%2C+India")
	assert.Contains(t, built, "f_LF=f_AL")
	assert.Contains(t, built, "f_E=2%2C3")

	noLevels := BuildSearchURL("Go Developer", "Remote", nil)
	assert.NotContains(t, noLevels, "f_E=")
}

func TestShouldSkipBlacklistedTitles(t *testing.T) {
	s := NewSearcher(newFakePortal(), config.SearchConfig{
		BlacklistTitles: []string{"Senior", "Staff"},
	}, zap.NewNop())

	assert.True(t, s.ShouldSkip("Senior Go Engineer"))
	assert.True(t, s.ShouldSkip("staff engineer"))
	assert.False(t, s.ShouldSkip("Go Engineer"))
	assert.False(t, s.ShouldSkip(""))
}

func TestDiscoverDeduplicatesByJobID(t *testing.T) {
	makeCard := func(id, title string) *fakeElement {
		card := newFakeElement()
		card.attrs["data-job-id"] = id
		titleEl := newFakeElement()
		titleEl.text = title
		card.children["h3.job-card-list__title"] = []schemas.Element{titleEl}
		return card
	}

	portal := newFakePortal()
	first := makeCard("101", "Backend Engineer")
	dup := makeCard("101", "Backend Engineer")
	second := makeCard("102", "Platform Engineer")
	portal.elements["div.job-card-container"] = []schemas.Element{first, dup}
	portal.elements["div[data-job-id]"] = []schemas.Element{second}

	s := NewSearcher(portal, config.SearchConfig{MaxJobsPerSearch: 10}, zap.NewNop())
	cards, err := s.Discover(context.Background(), "engineer", "remote")
	require.NoError(t, err)

	require.Len(t, cards, 2)
	assert.Equal(t, "101", cards[0].Job.ID)
	assert.Equal(t, "Backend Engineer", cards[0].Job.Title)
	assert.Equal(t, "102", cards[1].Job.ID)
	assert.NotEmpty(t, portal.navigated)
	assert.NotZero(t, portal.scrolls)
}

func TestDiscoverHonorsPerSearchLimit(t *testing.T) {
	portal := newFakePortal()
	var elements []schemas.Element
	for _, id := range []string{"1", "2", "3"} {
		card := newFakeElement()
		card.attrs["data-job-id"] = id
		elements = append(elements, card)
	}
	portal.elements["div.job-card-container"] = elements

	s := NewSearcher(portal, config.SearchConfig{MaxJobsPerSearch: 2}, zap.NewNop())
	cards, err := s.Discover(context.Background(), "engineer", "remote")
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}

func TestFindEasyApplyRequiresMatchingText(t *testing.T) {
	portal := newFakePortal()
	external := newFakeElement()
	external.text = "Apply on company site"
	easy := newFakeElement()
	easy.text = "Easy Apply"
	portal.elements["button.jobs-apply-button"] = []schemas.Element{external, easy}

	s := NewSearcher(portal, config.SearchConfig{}, zap.NewNop())
	button, found := s.FindEasyApply(context.Background())
	require.True(t, found)
	assert.Equal(t, easy, button)

	portal.elements["button.jobs-apply-button"] = []schemas.Element{external}
	_, found = s.FindEasyApply(context.Background())
	assert.False(t, found)
}

func TestLoginHappyPath(t *testing.T) {
	portal := newFakePortal()
	username := newFakeElement()
	password := newFakeElement()
	submit := newFakeElement()
	portal.elements["#username"] = []schemas.Element{username}
	portal.elements["#password"] = []schemas.Element{password}
	portal.elements["button[type='submit']"] = []schemas.Element{submit}
	portal.location = "https://www.linkedin.com/feed/"

	auth := NewAuthenticator(portal, config.ProfileConfig{
		Username: "user@example.com",
		Password: "hunter2",
	}, zap.NewNop())

	require.NoError(t, auth.Login(context.Background()))
	assert.Equal(t, []string{loginURL}, portal.navigated)
	assert.Equal(t, []string{"user@example.com"}, username.typed)
	assert.Equal(t, []string{"hunter2"}, password.typed)
	assert.Equal(t, 1, submit.clicks)
}

func TestLoginVerificationCheckpointWaits(t *testing.T) {
	portal := newFakePortal()
	portal.elements["#username"] = []schemas.Element{newFakeElement()}
	portal.elements["#password"] = []schemas.Element{newFakeElement()}
	portal.elements["button[type='submit']"] = []schemas.Element{newFakeElement()}
	portal.location = "https://www.linkedin.com/checkpoint/challenge"

	auth := NewAuthenticator(portal, config.ProfileConfig{}, zap.NewNop())
	waited := false
	auth.waitForOperator = func() { waited = true }

	require.NoError(t, auth.Login(context.Background()))
	assert.True(t, waited)
}

func TestLoginFailureSurfaces(t *testing.T) {
	portal := newFakePortal()
	portal.elements["#username"] = []schemas.Element{newFakeElement()}
	portal.elements["#password"] = []schemas.Element{newFakeElement()}
	portal.elements["button[type='submit']"] = []schemas.Element{newFakeElement()}
	portal.location = "https://www.linkedin.com/login?error=true"

	auth := NewAuthenticator(portal, config.ProfileConfig{}, zap.NewNop())
	assert.ErrorIs(t, auth.Login(context.Background()), ErrLoginFailed)
}

func TestRecorderWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "applications.jsonl")
	recorder, err := NewRecorder(path, zap.NewNop())
	require.NoError(t, err)
	defer recorder.Close()

	first := schemas.AttemptRecord{
		Job: schemas.Job{ID: "101", Title: "Backend Engineer"},
		Result: schemas.AttemptResult{
			AttemptID: "a-1",
			State:     schemas.StateSubmitted,
			Steps:     2,
		},
		Timestamp: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, recorder.Record(first))
	require.NoError(t, recorder.Record(schemas.AttemptRecord{
		Job:    schemas.Job{ID: "102"},
		Result: schemas.AttemptResult{State: schemas.StateExhausted, Steps: 1},
		Error:  "dialog never opened",
	}))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var records []schemas.AttemptRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record schemas.AttemptRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		records = append(records, record)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, records, 2)
	assert.Equal(t, first, records[0])
	assert.Equal(t, "dialog never opened", records[1].Error)
	assert.Equal(t, schemas.StateExhausted, records[1].Result.State)
}
