package app

import (
	"context"
	"nexalint/internal/core/config"
	"nexalint/internal/data/history"
	"nexalint/internal/engine/rules"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Scan.Roots = []string{root}
	cfg.Analysis.Workers = 2
	return cfg
}

func sampleProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py":              "password = \"abc\"\n",
		"b.py":              "x = 1\n",
		"c.txt":             "eval(x)\n",
		"e.js":              "eval(x)\n",
		"node_modules/d.py": "eval(x)\n",
	})
	return root
}

func TestApp_RunOnce(t *testing.T) {
	root := sampleProject(t)
	a, err := New(projectConfig(t, root))
	require.NoError(t, err)
	defer a.Close(context.Background())

	var updates int
	a.SetUpdateHandler(func(Result) { updates++ })

	result, err := a.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Reports, 3)
	assert.Equal(t, filepath.Join(root, "a.py"), result.Reports[0].Path)
	assert.Equal(t, filepath.Join(root, "b.py"), result.Reports[1].Path)
	assert.Equal(t, filepath.Join(root, "e.js"), result.Reports[2].Path)

	require.Len(t, result.Reports[0].Issues, 1)
	assert.Equal(t, rules.IDHardcodedCredential, result.Reports[0].Issues[0].Rule)
	assert.Empty(t, result.Reports[1].Issues)
	require.Len(t, result.Reports[2].Issues, 1)
	assert.Equal(t, rules.IDRiskyCall, result.Reports[2].Issues[0].Rule)

	// 90 + 100 + 90 = 280; 280 / 3 = 93.3
	assert.Equal(t, 93, result.Score.OverallScore)
	assert.Equal(t, 2, result.Score.TotalIssues)
	assert.Equal(t, 2, result.Score.IssueBreakdown["security"])
	assert.Equal(t, map[string]int{".py": 2, ".js": 1}, result.Scan.ByExtension)
	assert.Equal(t, 1, result.Scan.Skipped)
	assert.Nil(t, result.Trend, "no trend without history")
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 1, updates)

	last, ok := a.LastResult()
	require.True(t, ok)
	assert.Equal(t, result.RunID, last.RunID)
}

func TestApp_RunOnceEmptyProject(t *testing.T) {
	a, err := New(projectConfig(t, t.TempDir()))
	require.NoError(t, err)
	defer a.Close(context.Background())

	result, err := a.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Reports)
	assert.Equal(t, 100, result.Score.OverallScore)
}

func TestApp_RunOnceMissingRoot(t *testing.T) {
	a, err := New(projectConfig(t, filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	defer a.Close(context.Background())

	_, err = a.RunOnce(context.Background())
	require.Error(t, err)
}

func TestApp_HistoryTrend(t *testing.T) {
	root := sampleProject(t)
	cfg := projectConfig(t, root)
	cfg.DB.Enabled = true
	cfg.DB.Path = filepath.Join(t.TempDir(), "history.db")
	cfg.DB.ProjectKey = "sample"

	a, err := New(cfg)
	require.NoError(t, err)

	first, err := a.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first.Trend)
	assert.False(t, first.Trend.HasPrevious)

	writeTree(t, root, map[string]string{"a.py": "x = 2\n"})
	second, err := a.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, second.Trend)
	assert.True(t, second.Trend.HasPrevious)
	// 100 + 100 + 90 = 290; 290 / 3 = 96
	assert.Equal(t, 96-93, second.Trend.ScoreDelta)
	assert.Equal(t, -1, second.Trend.IssueDelta)
	require.NoError(t, a.Close(context.Background()))

	store, err := history.Open(cfg.DB.Path, 0)
	require.NoError(t, err)
	defer store.Close()
	latest, ok, err := store.Latest(context.Background(), "sample")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.RunID, latest.ID)
	assert.Len(t, latest.FileScores, 3)
}

func TestApp_HandleChanges(t *testing.T) {
	root := sampleProject(t)
	a, err := New(projectConfig(t, root))
	require.NoError(t, err)
	defer a.Close(context.Background())

	_, err = a.RunOnce(context.Background())
	require.NoError(t, err)

	aPath := filepath.Join(root, "a.py")
	bPath := filepath.Join(root, "b.py")
	newPath := filepath.Join(root, "new.py")
	require.NoError(t, os.Remove(aPath))
	writeTree(t, root, map[string]string{
		"b.py":   "eval(y)\n",
		"new.py": "z = 3\n",
	})

	result, err := a.HandleChanges(context.Background(), []string{aPath, bPath, newPath, filepath.Join(root, "c.txt")})
	require.NoError(t, err)

	require.Len(t, result.Reports, 3)
	assert.Equal(t, bPath, result.Reports[0].Path)
	assert.Equal(t, filepath.Join(root, "e.js"), result.Reports[1].Path)
	assert.Equal(t, newPath, result.Reports[2].Path)
	require.Len(t, result.Reports[0].Issues, 1)
	assert.Equal(t, rules.IDRiskyCall, result.Reports[0].Issues[0].Rule)
	// 90 + 90 + 100 = 280; 280 / 3 = 93
	assert.Equal(t, 93, result.Score.OverallScore)
	assert.Equal(t, map[string]int{".py": 2, ".js": 1}, result.Scan.ByExtension)
}

func TestApp_Reconfigure(t *testing.T) {
	root := sampleProject(t)
	a, err := New(projectConfig(t, root))
	require.NoError(t, err)
	defer a.Close(context.Background())

	cfg := projectConfig(t, root)
	cfg.Rules = rules.Config{
		rules.IDHardcodedCredential: {"enabled": false},
		rules.IDRiskyCall:           {"risky_calls": []string{"exec("}},
	}
	require.NoError(t, a.Reconfigure(cfg))

	result, err := a.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score.TotalIssues)
	assert.Equal(t, 100, result.Score.OverallScore)
}

type fakeHistory struct {
	mu   sync.Mutex
	runs []history.Run
}

func (f *fakeHistory) SaveRun(_ context.Context, projectKey string, run history.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run.ProjectKey = projectKey
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeHistory) LoadRuns(_ context.Context, projectKey string, _ time.Time, limit int) ([]history.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []history.Run
	for _, run := range f.runs {
		if run.ProjectKey == projectKey {
			out = append(out, run)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeHistory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

func TestApp_QueuedHistoryIsFlushedOnClose(t *testing.T) {
	root := sampleProject(t)
	store := &fakeHistory{}
	a, err := NewWithDependencies(projectConfig(t, root), Dependencies{History: store})
	require.NoError(t, err)

	a.startHistoryWorker()
	for range 3 {
		_, err := a.RunOnce(context.Background())
		require.NoError(t, err)
	}
	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, 3, store.count())
}

func TestApp_WatchReanalysesChangedFiles(t *testing.T) {
	root := sampleProject(t)
	cfg := projectConfig(t, root)
	cfg.Watch.Debounce = 20 * time.Millisecond
	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	_, err = a.RunOnce(context.Background())
	require.NoError(t, err)

	updates := make(chan Result, 8)
	a.SetUpdateHandler(func(r Result) { updates <- r })
	require.NoError(t, a.StartWatcher(context.Background()))

	writeTree(t, root, map[string]string{"a.py": "x = 1\n"})

	timeout := time.After(3 * time.Second)
	for {
		select {
		case r := <-updates:
			if r.Score.TotalIssues == 1 {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for watch update")
		}
	}
}

func TestHealthService(t *testing.T) {
	a, err := New(projectConfig(t, t.TempDir()))
	require.NoError(t, err)
	defer a.Close(context.Background())

	status := NewHealthService(a).Check(context.Background())
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, "disabled", status.Components["history"])
	assert.Equal(t, "none", status.Components["last_run"])
	assert.Contains(t, status.Components["analyzer"], "2 security rules")
}
