package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/flowwatch/internal/flow"
	"github.com/blackwell-systems/flowwatch/internal/snapshot"
)

const (
	configBody = `{"currentViewConfig":{"name":"Platform board","columns":[
		{"id":11,"name":"Todo"},{"id":12,"name":"Doing"},{"id":13,"name":"Done"}]}}`
	editModelBody = `{"name":"Platform",
		"swimlanesConfig":{"swimlanes":[{"id":1,"name":"Expedite"},{"id":2,"name":"Default"}]},
		"quickFilterConfig":{"quickFilters":[{"id":101,"name":"Bugs"}]}}`
	cfdBody = `{"columns":[{"name":"Todo"},{"name":"Doing"},{"name":"Done"}],
		"columnChanges":{
			"1704067200000":[{"key":"T1","columnTo":0}],
			"1704240000000":[{"key":"T1","columnFrom":0,"columnTo":1}],
			"bogus":[{"key":"T2","columnTo":0}]}}`
)

// fakeJira serves canned greenhopper responses and records the last flow
// data query.
type fakeJira struct {
	cfdQuery atomic.Value
	auth     atomic.Value
	status   int
}

func (f *fakeJira) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.auth.Store(r.Header.Get("Authorization"))
	if f.status != 0 {
		http.Error(w, "boom", f.status)
		return
	}
	switch {
	case strings.HasSuffix(r.URL.Path, boardConfigPath):
		_, _ = w.Write([]byte(configBody))
	case strings.HasSuffix(r.URL.Path, editModelPath):
		_, _ = w.Write([]byte(editModelBody))
	case strings.HasSuffix(r.URL.Path, cfdPath):
		f.cfdQuery.Store(r.URL.Query())
		_, _ = w.Write([]byte(cfdBody))
	default:
		http.NotFound(w, r)
	}
}

func TestJira_Board(t *testing.T) {
	srv := httptest.NewServer(&fakeJira{})
	defer srv.Close()

	j, err := NewJira(srv.URL, Options{})
	require.NoError(t, err)

	info, err := j.Board(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "Platform", info.Name)
	assert.Equal(t, []flow.Stage{{Index: 0, Name: "Todo"}, {Index: 1, Name: "Doing"}, {Index: 2, Name: "Done"}}, info.Columns)
	assert.Equal(t, []Option{{ID: "1", Name: "Expedite"}, {ID: "2", Name: "Default"}}, info.Swimlanes)
	assert.Equal(t, []Option{{ID: "101", Name: "Bugs"}}, info.QuickFilters)
}

func TestJira_Fetch(t *testing.T) {
	fake := &fakeJira{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	j, err := NewJira(srv.URL, Options{Token: "tok", QuickFilters: []string{"101"}})
	require.NoError(t, err)

	log, err := j.Fetch(context.Background(), "42")
	require.NoError(t, err)

	q := fake.cfdQuery.Load().(url.Values)
	assert.Equal(t, []string{"1", "2"}, q["swimlaneId"], "all swimlanes by default")
	assert.Equal(t, []string{"11", "12", "13"}, q["columnId"])
	assert.Equal(t, []string{"101"}, q["quickFilterId"])
	assert.Equal(t, []string{"42"}, q["rapidViewId"])
	assert.Equal(t, "Bearer tok", fake.auth.Load())

	require.Len(t, log.Stages, 3)
	assert.Equal(t, "Doing", log.Stages[1].Name)

	board := flow.NewBoard(log)
	assert.Equal(t, 1, board.TaskCount())
	assert.Equal(t, 1, board.NormalizeStats().Skipped, "unparseable timestamp is skipped")

	rec, ok := board.Record("T1")
	require.True(t, ok)
	assert.Equal(t, []int64{1704240000000}, rec.Starts[1])
}

func TestJira_FetchSelectedSwimlanes(t *testing.T) {
	fake := &fakeJira{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	j, err := NewJira(srv.URL, Options{Swimlanes: []string{"2"}})
	require.NoError(t, err)
	_, err = j.Fetch(context.Background(), "42")
	require.NoError(t, err)

	q := fake.cfdQuery.Load().(url.Values)
	assert.Equal(t, []string{"2"}, q["swimlaneId"])
	assert.Empty(t, q["quickFilterId"])
}

func TestJira_HTTPError(t *testing.T) {
	srv := httptest.NewServer(&fakeJira{status: http.StatusUnauthorized})
	defer srv.Close()

	j, err := NewJira(srv.URL, Options{})
	require.NoError(t, err)

	_, err = j.Fetch(context.Background(), "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "board 42")
}

func TestJira_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(&fakeJira{})
	defer srv.Close()

	j, err := NewJira(srv.URL, Options{Timeout: time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = j.Fetch(ctx, "42")
	assert.Error(t, err)
}

func TestJira_BasePath(t *testing.T) {
	var seen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"currentViewConfig": map[string]any{"columns": []any{}}})
	}))
	defer srv.Close()

	j, err := NewJira(srv.URL+"/jira", Options{})
	require.NoError(t, err)
	_, err = j.Board(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(seen.Load().(string), "/jira/rest/greenhopper/"))
}

func TestNewJira_InvalidURL(t *testing.T) {
	_, err := NewJira("https://", Options{})
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open("https://jira.example.com", Options{})
	require.NoError(t, err)
	assert.Equal(t, "jira.example.com", s.Host())

	s, err = Open("board.json", Options{})
	require.NoError(t, err)
	assert.Equal(t, "file", s.Host())

	_, err = Open("", Options{})
	assert.Error(t, err)
}

func TestFile_Fetch(t *testing.T) {
	to := 0
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, snapshot.WriteFile(path, &snapshot.Document{
		Board: snapshot.Board{Host: "jira.example.com", ID: "42"},
		Data: &flow.Log{
			Stages: []flow.Stage{{Index: 0, Name: "Todo"}, {Index: 1, Name: "Done"}},
			TransitionsByTimestamp: map[int64][]flow.TransitionEvent{
				1704067200000: {{Timestamp: 1704067200000, TaskKey: "T1", To: &to}},
			},
		},
	}))

	f := NewFile(path)
	log, err := f.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, log.Stages, 2)

	_, err = f.Fetch(context.Background(), "42")
	assert.NoError(t, err)

	_, err = f.Fetch(context.Background(), "7")
	assert.Error(t, err)

	_, err = NewFile(filepath.Join(t.TempDir(), "missing.json")).Fetch(context.Background(), "")
	assert.Error(t, err)
}
