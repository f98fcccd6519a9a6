package zephyr

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const apiPrefix = "/rest/atm/1.0"

// fakeZephyr is an in-memory stand-in for the parts of the Zephyr Scale API
// used by the managers.
type fakeZephyr struct {
	t *testing.T

	mu          sync.Mutex
	calls       []string
	bodies      map[string][]map[string]any
	plans       map[string]map[string]any
	attachments map[string][]map[string]any
	folders     map[string]bool
	nextPlan    int
	nextFolder  int

	// knobs
	folderAlwaysMissing bool
	rejectPlansWith     string
	deleteStatus        int
	failUploadOf        string
}

func newFakeZephyr(t *testing.T) *fakeZephyr {
	return &fakeZephyr{
		t:           t,
		bodies:      make(map[string][]map[string]any),
		plans:       make(map[string]map[string]any),
		attachments: make(map[string][]map[string]any),
		folders:     make(map[string]bool),
		nextPlan:    1,
		nextFolder:  100,
	}
}

func (f *fakeZephyr) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+apiPrefix+"/folder", f.createFolder)
	mux.HandleFunc("PUT "+apiPrefix+"/folder/{id}", f.updateFolder)
	mux.HandleFunc("POST "+apiPrefix+"/testplan/{$}", f.createPlan)
	mux.HandleFunc("GET "+apiPrefix+"/testplan/{key}", f.getPlan)
	mux.HandleFunc("PUT "+apiPrefix+"/testplan/{key}", f.updatePlan)
	mux.HandleFunc("DELETE "+apiPrefix+"/testplan/{key}", f.deletePlan)
	mux.HandleFunc("GET "+apiPrefix+"/testplan/{key}/attachments", f.listAttachments)
	mux.HandleFunc("POST "+apiPrefix+"/testplan/{key}/attachments", f.uploadAttachment)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls = append(f.calls, r.Method+" "+strings.TrimPrefix(r.URL.Path, apiPrefix))
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

// start serves the fake and returns a client and logger-free managers.
func (f *fakeZephyr) start() (*FolderManager, *PlanManager) {
	server := httptest.NewServer(f.handler())
	f.t.Cleanup(server.Close)

	client, err := NewClient(server.URL, "user", "secret", zerolog.Nop(),
		WithHTTPClient(server.Client()),
		WithBackoffFactor(time.Millisecond))
	require.NoError(f.t, err)

	return NewFolderManager(client, zerolog.Nop()), NewPlanManager(client, zerolog.Nop())
}

func (f *fakeZephyr) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeZephyr) count(call string) int {
	n := 0
	for _, c := range f.callLog() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeZephyr) lastBody(call string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bodies[call]
	if len(b) == 0 {
		return nil
	}
	return b[len(b)-1]
}

func (f *fakeZephyr) readBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	call := r.Method + " " + strings.TrimPrefix(r.URL.Path, apiPrefix)
	f.bodies[call] = append(f.bodies[call], body)
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func errorMessages(msgs ...string) map[string]any {
	return map[string]any{"errorMessages": msgs}
}

func (f *fakeZephyr) createFolder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, ok := f.readBody(w, r)
	if !ok {
		return
	}
	name, _ := body["name"].(string)
	if !strings.HasPrefix(name, "/") {
		writeJSON(w, http.StatusBadRequest, errorMessages("folder name must start with /"))
		return
	}
	f.folders[name] = true
	f.nextFolder++
	writeJSON(w, http.StatusCreated, map[string]any{"id": f.nextFolder})
}

func (f *fakeZephyr) updateFolder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, ok := f.readBody(w, r)
	if !ok {
		return
	}
	if name, _ := body["name"].(string); strings.HasPrefix(name, "/") {
		writeJSON(w, http.StatusBadRequest, errorMessages("folder name must not start with /"))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (f *fakeZephyr) missingFolder(body map[string]any) (string, bool) {
	folder, _ := body["folder"].(string)
	if folder == "" {
		return "", false
	}
	if f.folderAlwaysMissing || !f.folders[folder] {
		return folder, true
	}
	return "", false
}

func (f *fakeZephyr) createPlan(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, ok := f.readBody(w, r)
	if !ok {
		return
	}
	if f.rejectPlansWith != "" {
		writeJSON(w, http.StatusBadRequest, errorMessages(f.rejectPlansWith))
		return
	}
	if folder, missing := f.missingFolder(body); missing {
		writeJSON(w, http.StatusBadRequest, errorMessages(
			fmt.Sprintf("Folder '%s' was not found for field folder on project '%v'", folder, body["projectKey"])))
		return
	}

	key := fmt.Sprintf("%v-P%d", body["projectKey"], f.nextPlan)
	f.nextPlan++

	stored := map[string]any{"status": "Draft", "createdBy": "user", "createdOn": "2024-05-01T10:00:00.000Z"}
	for k, v := range body {
		if k == "testRunKeys" {
			var runs []any
			for _, rk := range v.([]any) {
				runs = append(runs, map[string]any{"key": rk, "projectKey": body["projectKey"]})
			}
			stored["testRuns"] = runs
			continue
		}
		stored[k] = v
	}
	stored["key"] = key
	f.plans[key] = stored
	writeJSON(w, http.StatusCreated, map[string]any{"id": f.nextPlan, "key": key})
}

func (f *fakeZephyr) getPlan(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	plan, ok := f.plans[r.PathValue("key")]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorMessages("Test plan not found"))
		return
	}

	fields := r.URL.Query().Get("fields")
	if fields == "" {
		writeJSON(w, http.StatusOK, plan)
		return
	}
	limited := make(map[string]any)
	for _, field := range strings.Split(fields, ",") {
		if v, ok := plan[field]; ok {
			limited[field] = v
		}
	}
	writeJSON(w, http.StatusOK, limited)
}

func (f *fakeZephyr) updatePlan(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, ok := f.readBody(w, r)
	if !ok {
		return
	}
	plan, ok := f.plans[r.PathValue("key")]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorMessages("Test plan not found"))
		return
	}
	if folder, missing := f.missingFolder(body); missing {
		writeJSON(w, http.StatusBadRequest, errorMessages(
			fmt.Sprintf("Folder '%s' was not found for field folder on project '%v'", folder, plan["projectKey"])))
		return
	}
	for k, v := range body {
		plan[k] = v
	}
	plan["updatedBy"] = "user"
	w.WriteHeader(http.StatusOK)
}

func (f *fakeZephyr) deletePlan(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteStatus != 0 {
		w.WriteHeader(f.deleteStatus)
		return
	}
	key := r.PathValue("key")
	if _, ok := f.plans[key]; !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	delete(f.plans, key)
	delete(f.attachments, key)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeZephyr) listAttachments(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := r.PathValue("key")
	if _, ok := f.plans[key]; !ok {
		writeJSON(w, http.StatusNotFound, errorMessages("Test plan not found"))
		return
	}
	list := f.attachments[key]
	if list == nil {
		list = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (f *fakeZephyr) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	f.mu.Lock()
	defer f.mu.Unlock()

	key := r.PathValue("key")
	if header.Filename == f.failUploadOf {
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}
	id := len(f.attachments[key]) + 1
	f.attachments[key] = append(f.attachments[key], map[string]any{
		"id":       id,
		"url":      fmt.Sprintf("https://jira.example.com/attachments/%d", id),
		"filename": header.Filename,
		"filesize": len(data),
	})
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (f *fakeZephyr) seedPlan(key string, fields map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	plan := map[string]any{"key": key, "projectKey": strings.SplitN(key, "-", 2)[0], "status": "Draft"}
	for k, v := range fields {
		plan[k] = v
	}
	f.plans[key] = plan
}
