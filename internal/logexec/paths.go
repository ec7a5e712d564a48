package logexec

import (
	"os"
	"path/filepath"
)

// userDataDir returns the OS user-data root artifacts are rooted under
// (spec.md §4.G "Both are rooted under the OS's user data directory").
// There is no ecosystem library in the retrieved pack for this (it's a
// one-line stdlib call, not a gap any dependency fills); os.UserConfigDir
// already resolves the per-OS convention (%AppData%, ~/Library/Application
// Support, $XDG_CONFIG_HOME) the spec is describing.
func userDataDir() (string, error) {
	if v := os.Getenv("TERMINATOR_USER_DATA_DIR"); v != "" {
		return v, nil
	}
	return os.UserConfigDir()
}

// standaloneDir is the shared executions directory for tool calls with no
// known workflow id: `<user-data>/mediar/executions/`.
func standaloneDir(root string) (string, error) {
	if root != "" {
		return filepath.Join(root, "mediar", "executions"), nil
	}
	base, err := userDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "mediar", "executions"), nil
}

// workflowDir is the per-workflow executions directory:
// `<user-data>/mediar/workflows/<workflow_id>/executions/`.
func workflowDir(root, workflowID string) (string, error) {
	if root != "" {
		return filepath.Join(root, "mediar", "workflows", workflowID, "executions"), nil
	}
	base, err := userDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "mediar", "workflows", workflowID, "executions"), nil
}

// executionDir picks the destination directory for ctx per spec.md §4.G
// item 3: workflow-scoped when a workflow id is known, else standalone.
func executionDir(root string, workflowID string) (string, error) {
	if workflowID != "" {
		return workflowDir(root, workflowID)
	}
	return standaloneDir(root)
}
