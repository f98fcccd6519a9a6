package zephyr

import (
	"context"
)

// FolderAPI defines the folder operations offered by Zephyr Scale
type FolderAPI interface {
	// Create creates a new folder
	Create(ctx context.Context, folder FolderCreate) (*Folder, error)

	// Update renames an existing folder
	Update(ctx context.Context, folder Folder) (*Folder, error)
}

// PlanAPI defines the test plan operations
type PlanAPI interface {
	Create(ctx context.Context, plan PlanCreate) (*Plan, error)
	Get(ctx context.Context, key string, fields ...string) (*Plan, error)
	Update(ctx context.Context, plan PlanUpdate) (*Plan, error)
	Delete(ctx context.Context, key string) (*Plan, error)
	GetAttachments(ctx context.Context, key string) ([]Attachment, bool, error)
}

var (
	_ FolderAPI = (*FolderManager)(nil)
	_ PlanAPI   = (*PlanManager)(nil)
)
