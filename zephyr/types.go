package zephyr

import (
	"fmt"
	"strings"
)

// FolderType is the kind of entity a folder groups.
type FolderType string

const (
	// FolderTypePlan groups test plans
	FolderTypePlan FolderType = "TEST_PLAN"
	// FolderTypeCycle groups test cycles, which the API calls test runs
	FolderTypeCycle FolderType = "TEST_RUN"
	// FolderTypeCase groups test cases
	FolderTypeCase FolderType = "TEST_CASE"
)

// ParseFolderType maps the CLI names plan, cycle and case (or the wire
// values themselves) to a FolderType.
func ParseFolderType(s string) (FolderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plan", "test_plan":
		return FolderTypePlan, nil
	case "cycle", "run", "test_run":
		return FolderTypeCycle, nil
	case "case", "test_case":
		return FolderTypeCase, nil
	}
	return "", fmt.Errorf("%w: unknown folder type %q (must be plan, cycle or case)", ErrInvalidInput, s)
}

// String returns the wire value of the folder type
func (t FolderType) String() string {
	return string(t)
}

// Folder is an existing folder.
//
// Name is stored without a leading slash. The API wants one when a folder is
// created and rejects it when a folder is updated; the managers take care of
// that.
type Folder struct {
	ID   int64      `json:"id"`
	Name string     `json:"name"`
	Type FolderType `json:"type"`
}

// FolderCreate describes a folder that does not exist yet.
type FolderCreate struct {
	ProjectKey string     `json:"project_key"`
	Name       string     `json:"name"`
	Type       FolderType `json:"type"`
}

// PlanStatus is the workflow status of a test plan.
type PlanStatus string

const (
	PlanStatusDraft      PlanStatus = "Draft"
	PlanStatusApproved   PlanStatus = "Approved"
	PlanStatusDeprecated PlanStatus = "Deprecated"
)

// ParsePlanStatus accepts the status names case-insensitively. An empty
// string is valid and means "unset".
func ParsePlanStatus(s string) (PlanStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "draft":
		return PlanStatusDraft, nil
	case "approved":
		return PlanStatusApproved, nil
	case "deprecated":
		return PlanStatusDeprecated, nil
	}
	return "", fmt.Errorf("%w: unknown plan status %q (must be Draft, Approved or Deprecated)", ErrInvalidInput, s)
}

func (s PlanStatus) validate() error {
	_, err := ParsePlanStatus(string(s))
	return err
}

// Attachment is a file stored against a plan. Only the server creates them.
type Attachment struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
}

// Comment is a user comment embedded in a plan.
type Comment struct {
	CreatedBy string `json:"created_by"`
	CreatedOn string `json:"created_on"`
	Body      string `json:"body"`
}

// TestCycle is a test run associated with a plan. Read only.
type TestCycle struct {
	Key              string `json:"key"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Folder           string `json:"folder"`
	Owner            string `json:"owner"`
	Status           string `json:"status"`
	ProjectKey       string `json:"project_key"`
	IssueKey         string `json:"issue_key"`
	IssueCount       int    `json:"issue_count"`
	TestCaseCount    int    `json:"test_case_count"`
	EstimatedTime    int64  `json:"estimated_time"`
	PlannedStartDate string `json:"planned_start_date"`
	PlannedEndDate   string `json:"planned_end_date"`
	CreatedBy        string `json:"created_by"`
	CreatedOn        string `json:"created_on"`
	UpdatedBy        string `json:"updated_by"`
	UpdatedOn        string `json:"updated_on"`
}

// Plan is a test plan as stored by the server.
type Plan struct {
	Key          string         `json:"key"`
	ProjectKey   string         `json:"project_key"`
	Name         string         `json:"name"`
	Objective    string         `json:"objective"`
	Owner        string         `json:"owner"`
	Status       PlanStatus     `json:"status"`
	Folder       string         `json:"folder"`
	Labels       []string       `json:"labels"`
	IssueLinks   []string       `json:"issue_links"`
	CustomFields map[string]any `json:"custom_fields"`
	TestRuns     []TestCycle    `json:"test_runs"`
	Attachments  []Attachment   `json:"attachments"`
	Comments     []Comment      `json:"comments"`
	CreatedBy    string         `json:"created_by"`
	CreatedOn    string         `json:"created_on"`
	UpdatedBy    string         `json:"updated_by"`
	UpdatedOn    string         `json:"updated_on"`
}

// normalize replaces nil collections so they render as [] and {}.
func (p *Plan) normalize() {
	if p.Labels == nil {
		p.Labels = []string{}
	}
	if p.IssueLinks == nil {
		p.IssueLinks = []string{}
	}
	if p.CustomFields == nil {
		p.CustomFields = map[string]any{}
	}
	if p.TestRuns == nil {
		p.TestRuns = []TestCycle{}
	}
	if p.Attachments == nil {
		p.Attachments = []Attachment{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
}

// PlanCreate describes a new plan. Attachments are local file paths that are
// uploaded once the plan exists.
type PlanCreate struct {
	ProjectKey   string         `json:"project_key"`
	Name         string         `json:"name"`
	Objective    string         `json:"objective"`
	Owner        string         `json:"owner"`
	Status       PlanStatus     `json:"status"`
	Folder       string         `json:"folder"`
	Labels       []string       `json:"labels"`
	IssueLinks   []string       `json:"issue_links"`
	CustomFields map[string]any `json:"custom_fields"`
	TestRunKeys  []string       `json:"test_run_keys"`
	Attachments  []string       `json:"attachments"`
}

// PlanUpdate carries the changes for the plan identified by Key. Empty
// fields are left untouched on the server.
type PlanUpdate struct {
	Key          string         `json:"key"`
	Name         string         `json:"name"`
	Objective    string         `json:"objective"`
	Owner        string         `json:"owner"`
	Status       PlanStatus     `json:"status"`
	Folder       string         `json:"folder"`
	Labels       []string       `json:"labels"`
	IssueLinks   []string       `json:"issue_links"`
	CustomFields map[string]any `json:"custom_fields"`
	TestRuns     []string       `json:"test_runs"`
	Attachments  []string       `json:"attachments"`
}
