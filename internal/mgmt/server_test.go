package mgmt

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrum-maestro/agent/internal/task"
)

type fakeReader struct {
	tasks []*task.Task
}

func (f *fakeReader) GetTask(taskID string) (*task.Task, error) {
	for _, t := range f.tasks {
		if t.TaskID == taskID {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeReader) ListTasks() ([]*task.Task, error) {
	return f.tasks, nil
}

func testTasks() []*task.Task {
	due := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	return []*task.Task{
		{TaskID: "7", Owner: "alice", Description: "write docs", DueAt: due, Progress: task.ProgressStarted, JiraKey: "SCRUM-10"},
		{TaskID: "8", Owner: "bob", Description: "fix login", DueAt: due, Progress: task.ProgressEnded},
	}
}

func newTestServer(apiKey string) *Server {
	return NewServer(ServerConfig{
		ListenAddr:  ":0",
		APIKey:      apiKey,
		Environment: "test",
		Version:     "dev",
	}, &fakeReader{tasks: testTasks()}, zerolog.New(os.Stderr))
}

func TestListTasks(t *testing.T) {
	s := newTestServer("")

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/v1/tasks", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Tasks []taskResponse `json:"tasks"`
		Count int            `json:"count"`
	}
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "7", body.Tasks[0].TaskID)
	assert.Equal(t, "SCRUM-10", body.Tasks[0].JiraKey)
}

func TestListTasks_ProgressFilter(t *testing.T) {
	s := newTestServer("")

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/v1/tasks?progress=ENDED", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Tasks []taskResponse `json:"tasks"`
	}
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Len(t, body.Tasks, 1)
	assert.Equal(t, "8", body.Tasks[0].TaskID)

	resp, err = s.app.Test(httptest.NewRequest("GET", "/api/v1/tasks?progress=BOGUS", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 400, resp.StatusCode)
}

func TestGetTask(t *testing.T) {
	s := newTestServer("")

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/v1/tasks/7", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var body taskResponse
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "write docs", body.Description)

	resp, err = s.app.Test(httptest.NewRequest("GET", "/api/v1/tasks/99", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}

func TestInfo(t *testing.T) {
	s := newTestServer("")

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/v1/info", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var body map[string]string
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "scrum-maestro", body["name"])
	assert.Equal(t, "test", body["environment"])
}

func TestAPIKeyAuth(t *testing.T) {
	s := newTestServer("sekrit")

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/v1/tasks", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 401, resp.StatusCode)

	req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
	req.Header.Set("X-API-Key", "sekrit")
	resp, err = s.app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	// liveness probe bypasses auth
	resp, err = s.app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}
