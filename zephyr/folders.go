package zephyr

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// FolderManager creates and renames folders. The API offers no way to read
// or delete a folder.
type FolderManager struct {
	client *Client
	logger zerolog.Logger
}

// NewFolderManager creates a new FolderManager
func NewFolderManager(client *Client, logger zerolog.Logger) *FolderManager {
	return &FolderManager{
		client: client,
		logger: logger,
	}
}

// Create creates a new folder. A nil folder and nil error means the server
// answered with a status that is neither success nor a validation failure.
func (m *FolderManager) Create(ctx context.Context, folder FolderCreate) (*Folder, error) {
	if canonicalFolderName(folder.Name) == "" {
		return nil, fmt.Errorf("%w: folder name is required", ErrInvalidInput)
	}
	if folder.ProjectKey == "" {
		return nil, fmt.Errorf("%w: project key is required", ErrInvalidInput)
	}

	data, err := toWire(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to encode folder: %w", err)
	}
	data["name"] = withLeadingSlash(folder.Name)

	resp, err := m.client.postJSON(ctx, "folder", data)
	if err != nil {
		return nil, fmt.Errorf("failed to create folder %q: %w", folder.Name, err)
	}

	switch resp.StatusCode {
	case http.StatusCreated:
		var created struct {
			ID int64 `json:"id"`
		}
		if err := resp.decode(&created); err != nil {
			return nil, err
		}

		m.logger.Debug().
			Int64("folder_id", created.ID).
			Str("name", folder.Name).
			Str("project", folder.ProjectKey).
			Msg("Created folder")

		return &Folder{
			ID:   created.ID,
			Name: canonicalFolderName(folder.Name),
			Type: folder.Type,
		}, nil
	case http.StatusBadRequest:
		return nil, resp.remoteError(strings.Join(resp.ErrorMessages(), ", "))
	}

	m.logger.Warn().
		Int("status", resp.StatusCode).
		Str("name", folder.Name).
		Msg("Unexpected response while creating folder")
	return nil, nil
}

// Update renames an existing folder and returns it unchanged, as the server
// does not echo the folder back.
func (m *FolderManager) Update(ctx context.Context, folder Folder) (*Folder, error) {
	if folder.ID <= 0 {
		return nil, fmt.Errorf("%w: folder id is required", ErrInvalidInput)
	}
	if canonicalFolderName(folder.Name) == "" {
		return nil, fmt.Errorf("%w: folder name is required", ErrInvalidInput)
	}

	data, err := toWire(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to encode folder: %w", err)
	}
	data["name"] = canonicalFolderName(folder.Name)
	delete(data, "id")
	delete(data, "type")
	dropEmpty(data)

	endpoint := "folder/" + strconv.FormatInt(folder.ID, 10)
	resp, err := m.client.putJSON(ctx, endpoint, data)
	if err != nil {
		return nil, fmt.Errorf("failed to update folder %d: %w", folder.ID, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		updated := folder
		return &updated, nil
	case http.StatusBadRequest:
		return nil, resp.remoteError(strings.Join(resp.ErrorMessages(), ", "))
	}

	m.logger.Warn().
		Int("status", resp.StatusCode).
		Int64("folder_id", folder.ID).
		Msg("Unexpected response while updating folder")
	return nil, nil
}
