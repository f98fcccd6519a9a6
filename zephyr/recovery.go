package zephyr

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// missingFolderSignal is part of the 400 message returned when a plan
// references a folder that does not exist.
const missingFolderSignal = "was not found for field folder"

// maxFolderRecoveries bounds how often a single operation may create a
// missing folder and try again.
const maxFolderRecoveries = 1

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeFolderCreatedAndRetried
	outcomeFailed
)

func (o outcome) String() string {
	switch o {
	case outcomeSucceeded:
		return "succeeded"
	case outcomeFolderCreatedAndRetried:
		return "folder_created_and_retried"
	default:
		return "failed"
	}
}

type attemptResult struct {
	outcome  outcome
	response *Response
}

func reportsMissingFolder(messages []string) bool {
	for _, msg := range messages {
		if strings.Contains(msg, missingFolderSignal) {
			return true
		}
	}
	return false
}

// sendWithFolderRecovery calls send until it answers with want. A 400
// naming a missing folder creates that folder (as a plan folder in
// projectKey) and sends once more.
func (m *PlanManager) sendWithFolderRecovery(
	ctx context.Context,
	projectKey, folder string,
	want int,
	send func(context.Context) (*Response, error),
) (attemptResult, error) {
	recovered := 0
	for {
		resp, err := send(ctx)
		if err != nil {
			return attemptResult{outcome: outcomeFailed}, err
		}

		if resp.StatusCode == want {
			if recovered > 0 {
				return attemptResult{outcome: outcomeFolderCreatedAndRetried, response: resp}, nil
			}
			return attemptResult{outcome: outcomeSucceeded, response: resp}, nil
		}

		if resp.StatusCode != http.StatusBadRequest ||
			recovered >= maxFolderRecoveries ||
			canonicalFolderName(folder) == "" ||
			!reportsMissingFolder(resp.ErrorMessages()) {
			return attemptResult{outcome: outcomeFailed, response: resp}, nil
		}

		m.logger.Info().
			Str("folder", folder).
			Str("project", projectKey).
			Msg("Folder does not exist, creating it")

		created, err := m.folders.Create(ctx, FolderCreate{
			ProjectKey: projectKey,
			Name:       folder,
			Type:       FolderTypePlan,
		})
		if err != nil {
			return attemptResult{outcome: outcomeFailed}, fmt.Errorf("failed to create missing folder %q: %w", folder, err)
		}
		if created == nil {
			return attemptResult{outcome: outcomeFailed}, fmt.Errorf("%w: %s", ErrFolderNotCreated, folder)
		}
		recovered++
	}
}
