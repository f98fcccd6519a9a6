package zephyr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// PlanManager manages test plans and their attachments.
type PlanManager struct {
	client  *Client
	folders *FolderManager
	logger  zerolog.Logger
}

// NewPlanManager creates a new PlanManager. Missing folders are created
// through a FolderManager sharing the same client.
func NewPlanManager(client *Client, logger zerolog.Logger) *PlanManager {
	return &PlanManager{
		client:  client,
		folders: NewFolderManager(client, logger),
		logger:  logger,
	}
}

func planPath(key string) string {
	return "testplan/" + url.PathEscape(key)
}

func attachmentsPath(key string) string {
	return planPath(key) + "/attachments"
}

// Create creates a new test plan, uploads its attachments and returns the
// plan as stored by the server. A folder that does not exist yet is created.
func (m *PlanManager) Create(ctx context.Context, plan PlanCreate) (*Plan, error) {
	if plan.ProjectKey == "" {
		return nil, fmt.Errorf("%w: project key is required", ErrInvalidInput)
	}
	if err := plan.Status.validate(); err != nil {
		return nil, err
	}

	payload, err := toWire(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	delete(payload, "attachments")
	slashFolderField(payload, "folder")
	dropEmpty(payload)

	res, err := m.sendWithFolderRecovery(ctx, plan.ProjectKey, plan.Folder, http.StatusCreated,
		func(ctx context.Context) (*Response, error) {
			return m.client.postJSON(ctx, "testplan/", payload)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create plan %q: %w", plan.Name, err)
	}
	if res.outcome == outcomeFailed {
		return nil, failure("create plan "+plan.Name, res.response)
	}

	var created struct {
		Key string `json:"key"`
	}
	if err := res.response.decode(&created); err != nil {
		return nil, err
	}

	m.logger.Debug().
		Str("key", created.Key).
		Stringer("outcome", res.outcome).
		Msg("Created test plan")

	return m.refresh(ctx, created.Key, plan.Attachments)
}

// Get returns the plan with the given key, or nil if it does not exist.
//
// fields limits the returned fields. Attachments come from a second request
// that is skipped when fields is set and does not name "attachments".
func (m *PlanManager) Get(ctx context.Context, key string, fields ...string) (*Plan, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: plan key is required", ErrInvalidInput)
	}

	var query url.Values
	if len(fields) > 0 {
		query = url.Values{"fields": {strings.Join(fields, ",")}}
	}

	resp, err := m.client.get(ctx, planPath(key), query)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan %s: %w", key, err)
	}

	switch {
	case resp.Class() == ClassNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, resp.remoteError("unexpected status")
	}

	var plan Plan
	if err := resp.decode(&plan); err != nil {
		return nil, err
	}

	if len(fields) == 0 || slices.Contains(fields, "attachments") {
		attachments, found, err := m.GetAttachments(ctx, key)
		if err != nil {
			return nil, err
		}
		if found {
			plan.Attachments = attachments
		}
	}

	plan.normalize()
	return &plan, nil
}

// GetAttachments lists the files attached to a plan. found is false when the
// plan does not exist; a plan without attachments yields an empty list.
func (m *PlanManager) GetAttachments(ctx context.Context, key string) (attachments []Attachment, found bool, err error) {
	if key == "" {
		return nil, false, fmt.Errorf("%w: plan key is required", ErrInvalidInput)
	}

	resp, err := m.client.get(ctx, attachmentsPath(key), nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get attachments for %s: %w", key, err)
	}

	switch {
	case resp.Class() == ClassNotFound:
		return nil, false, nil
	case resp.StatusCode != http.StatusOK:
		return nil, false, resp.remoteError("unexpected status")
	}

	if len(bytes.TrimSpace(resp.Body)) > 0 {
		if err := resp.decode(&attachments); err != nil {
			return nil, false, err
		}
	}
	if attachments == nil {
		attachments = []Attachment{}
	}
	return attachments, true, nil
}

// Update applies the non-empty fields of plan to the stored plan. An unset
// status keeps the current one. A folder that does not exist yet is created.
func (m *PlanManager) Update(ctx context.Context, plan PlanUpdate) (*Plan, error) {
	if plan.Key == "" {
		return nil, fmt.Errorf("%w: plan key is required", ErrInvalidInput)
	}
	if err := plan.Status.validate(); err != nil {
		return nil, err
	}

	existing, err := m.Get(ctx, plan.Key, "key", "projectKey", "status")
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w - %s", ErrPlanNotFound, plan.Key)
	}

	if plan.Status == "" {
		plan.Status = existing.Status
	}

	payload, err := toWire(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	delete(payload, "key")
	delete(payload, "attachments")
	slashFolderField(payload, "folder")
	dropEmpty(payload)

	res, err := m.sendWithFolderRecovery(ctx, existing.ProjectKey, plan.Folder, http.StatusOK,
		func(ctx context.Context) (*Response, error) {
			return m.client.putJSON(ctx, planPath(plan.Key), payload)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to update plan %s: %w", plan.Key, err)
	}
	if res.outcome == outcomeFailed {
		return nil, failure("update plan "+plan.Key, res.response)
	}

	m.logger.Debug().
		Str("key", plan.Key).
		Stringer("outcome", res.outcome).
		Msg("Updated test plan")

	return m.refresh(ctx, plan.Key, plan.Attachments)
}

// Delete deletes a plan and returns its last known state, or nil if there
// was nothing to delete.
func (m *PlanManager) Delete(ctx context.Context, key string) (*Plan, error) {
	plan, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, nil
	}

	resp, err := m.client.delete(ctx, planPath(key))
	if err != nil {
		return nil, fmt.Errorf("failed to delete plan %s: %w", key, err)
	}

	// 404 means someone else got there first, which is fine for a delete.
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusNotFound:
		m.logger.Debug().Str("key", key).Int("status", resp.StatusCode).Msg("Deleted test plan")
		return plan, nil
	}
	return nil, resp.remoteError("unexpected status")
}

// refresh re-reads the plan so the result carries server computed fields.
// When there are attachments to upload it reads the plan once more
// afterwards to pick up their metadata.
func (m *PlanManager) refresh(ctx context.Context, key string, attachments []string) (*Plan, error) {
	plan, err := m.fetch(ctx, key)
	if err != nil || len(attachments) == 0 {
		return plan, err
	}

	for _, path := range attachments {
		if err := m.uploadAttachment(ctx, key, path); err != nil {
			return nil, err
		}
	}
	return m.fetch(ctx, key)
}

func (m *PlanManager) fetch(ctx context.Context, key string) (*Plan, error) {
	plan, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("%w - %s", ErrPlanNotFound, key)
	}
	return plan, nil
}

func (m *PlanManager) uploadAttachment(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open attachment: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to build upload for %s: %w", path, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read attachment %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to build upload for %s: %w", path, err)
	}

	resp, err := m.client.do(ctx, http.MethodPost, attachmentsPath(key), nil, buf.Bytes(), w.FormDataContentType())
	if err != nil {
		return fmt.Errorf("failed to attach %s to %s: %w", path, key, err)
	}
	if resp.StatusCode != http.StatusCreated {
		return resp.remoteError(fmt.Sprintf("received HTTP response %d attaching %s to %s", resp.StatusCode, path, key))
	}

	m.logger.Debug().Str("key", key).Str("file", path).Msg("Uploaded attachment")
	return nil
}

// failure turns a response the recovery loop gave up on into an error.
func failure(op string, resp *Response) error {
	if resp == nil {
		return fmt.Errorf("failed to %s", op)
	}
	if resp.StatusCode == http.StatusBadRequest {
		return &ValidationError{Op: op, Messages: resp.ErrorMessages()}
	}
	return resp.remoteError("failed to " + op)
}
