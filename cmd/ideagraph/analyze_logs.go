package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ideagraph/internal/agentgateway"
	"ideagraph/internal/apperr"
	"ideagraph/internal/domain"
	"ideagraph/internal/store"
	"ideagraph/internal/threadtoken"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

const analyzeLogsAgent = "text-analysis-task-derivation"

// agentInvoker is the narrow AgentGateway seam this file depends on, the
// same pattern classify.Invoker/rag.Invoker/advisor.Invoker use — satisfied
// by *agentgateway.Gateway.
type agentInvoker interface {
	Invoke(ctx context.Context, agentName, prompt string, params agentgateway.Params) (*agentgateway.Result, error)
}

var analyzeLogsCmd = &cobra.Command{
	Use:   "analyze-logs",
	Short: "Fetch recent logs, ask the agent gateway to derive actionable issues, optionally file Tasks",
	RunE:  runAnalyzeLogs,
}

func init() {
	rootCmd.AddCommand(analyzeLogsCmd)
	analyzeLogsCmd.Flags().Bool("fetch-local", false, "read from the local log file (LOG_FILE_PATH, default ./logs/app.log)")
	analyzeLogsCmd.Flags().Bool("fetch-sentry", false, "fetch recent issues from Sentry (SENTRY_API_TOKEN, SENTRY_ORG, SENTRY_PROJECT)")
	analyzeLogsCmd.Flags().Bool("analyze", false, "run the text-analysis-task-derivation agent over fetched log text")
	analyzeLogsCmd.Flags().Bool("create-tasks", false, "file a Task for each derived issue in the default Item")
}

// derivedIssue is the agent's structurally-validated output shape, the same
// "best effort, fall back to a safe default on malformed JSON" discipline
// classify.Classifier applies to its own agent calls (spec.md §7 "Malformed
// input from AI").
type derivedIssue struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

type analyzeLogsOutput struct {
	Issues []derivedIssue `json:"issues"`
}

func runAnalyzeLogs(cmd *cobra.Command, _ []string) error {
	ctx, stop := setupSignalHandler()
	defer stop()

	fetchLocal, _ := cmd.Flags().GetBool("fetch-local")
	fetchSentry, _ := cmd.Flags().GetBool("fetch-sentry")
	analyze, _ := cmd.Flags().GetBool("analyze")
	createTasks, _ := cmd.Flags().GetBool("create-tasks")

	a, cleanup, err := newApp(ctx, configFilePath(cmd))
	if err != nil {
		return &exitError{code: exitConfigError, message: err.Error()}
	}
	defer cleanup()

	var logText string
	switch {
	case fetchLocal:
		logText, err = readLocalLog(os.Getenv("LOG_FILE_PATH"))
	case fetchSentry:
		logText, err = fetchSentryIssues(ctx)
	}
	if err != nil {
		return &exitError{code: exitPartialFailure, message: err.Error()}
	}

	var issues []derivedIssue
	if analyze {
		if logText == "" {
			return &exitError{code: exitConfigError, message: "--analyze requires --fetch-local or --fetch-sentry"}
		}
		if a.gateway == nil {
			return &exitError{code: exitConfigError, message: apperr.Disabled("agent gateway (agent.enabled)").Error()}
		}
		issues, err = deriveIssues(ctx, a.gateway, logText, a.logger)
		if err != nil {
			return &exitError{code: exitPartialFailure, message: err.Error()}
		}
		a.logger.Info("analyze-logs: derived issues", zap.Int("count", len(issues)))
	}

	if createTasks {
		defaultItemID := os.Getenv("DEFAULT_ITEM_ID")
		if defaultItemID == "" {
			return &exitError{code: exitConfigError, message: "--create-tasks requires DEFAULT_ITEM_ID to be set"}
		}
		filed, err := fileIssueTasks(ctx, a.store.Tasks, defaultItemID, issues)
		if err != nil {
			return &exitError{code: exitPartialFailure, message: err.Error()}
		}
		a.logger.Info("analyze-logs: filed tasks", zap.Int("count", filed))
	}

	// The reconciler catches entities whose index write silently failed
	// at create/update time (knowledge.Sync's documented "log and swallow"
	// failure policy) — analyze-logs is this core's periodic maintenance
	// entrypoint, so it runs that sweep on every invocation.
	if a.knowledge != nil {
		resynced, err := a.knowledge.Reconcile(ctx, a.store.Items, a.store.Tasks)
		if err != nil {
			a.logger.Warn("analyze-logs: knowledge reconcile did not complete", zap.Error(err))
		} else {
			a.logger.Info("analyze-logs: knowledge reconcile complete", zap.Int("resynced", resynced))
		}
	}

	return nil
}

func readLocalLog(path string) (string, error) {
	if path == "" {
		path = "./logs/app.log"
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	const maxLines = 2000
	var tail []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		tail = append(tail, scanner.Text())
		if len(tail) > maxLines {
			tail = tail[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read log file: %w", err)
	}
	var sb []byte
	for _, line := range tail {
		sb = append(sb, line...)
		sb = append(sb, '\n')
	}
	return string(sb), nil
}

func deriveIssues(ctx context.Context, gateway agentInvoker, logText string, logger *zap.Logger) ([]derivedIssue, error) {
	prompt := fmt.Sprintf("Review the following application log excerpt and identify distinct actionable issues. Respond as JSON: {\"issues\":[{\"title\":...,\"description\":...,\"severity\":...}]}.\n\nLOG:\n%s", logText)
	result, err := gateway.Invoke(ctx, analyzeLogsAgent, prompt, agentgateway.Params{})
	if err != nil {
		return nil, fmt.Errorf("analyze-logs: agent call failed: %w", err)
	}

	var out analyzeLogsOutput
	if err := json.Unmarshal([]byte(result.Text), &out); err != nil {
		logger.Warn("analyze-logs: malformed agent output, treating as zero issues", zap.Error(err))
		return nil, nil
	}

	validate := validator.New()
	valid := make([]derivedIssue, 0, len(out.Issues))
	for _, issue := range out.Issues {
		if err := validate.Struct(issue); err != nil {
			logger.Warn("analyze-logs: dropping malformed derived issue", zap.Error(err))
			continue
		}
		valid = append(valid, issue)
	}
	return valid, nil
}

// fileIssueTasks creates one Task per derived issue, the same shape a
// poller's handleCreate builds (new status; the requester is the fixed
// "system:analyze-logs" id, since the task is system-originated and not
// traced to an inbound message).
func fileIssueTasks(ctx context.Context, tasks store.TaskStore, defaultItemID string, issues []derivedIssue) (int, error) {
	filed := 0
	for _, issue := range issues {
		task := &domain.Task{
			ID:          uuid.New().String(),
			Title:       issue.Title,
			Description: issue.Description,
			Status:      domain.TaskStatusNew,
			ItemID:      defaultItemID,
			RequesterID: "system:analyze-logs",
		}
		task.ShortID = firstAvailableShortID(ctx, tasks, task.ID)
		if err := tasks.Create(ctx, task); err != nil {
			return filed, fmt.Errorf("create task for issue %q: %w", issue.Title, err)
		}
		filed++
	}
	return filed, nil
}

// firstAvailableShortID mirrors poller.firstAvailableShortID (unexported
// there): start at the thread-token's minimum width and extend on a
// uniqueness collision (spec.md §4.1).
func firstAvailableShortID(ctx context.Context, tasks store.TaskStore, taskID string) string {
	for length := 6; length < 8; length++ {
		id := threadtoken.ShortIDForLen(taskID, length)
		exists, err := tasks.ShortIDExists(ctx, id)
		if err == nil && !exists {
			return id
		}
	}
	return threadtoken.ShortIDForLen(taskID, 8)
}
