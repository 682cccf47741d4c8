package redis

import "fmt"

// Key layout. Entities live in JSON values (job instances in hashes);
// membership sets and lists provide enumeration.
const keyPrefix = "conductor:"

func tenantKey(tenantID string) string { return keyPrefix + "tenant:" + tenantID }

func tenantsKey() string { return keyPrefix + "tenants" }

func workflowKey(workflowID string) string { return keyPrefix + "workflow:" + workflowID }

func workflowsKey() string { return keyPrefix + "workflows" }

func branchKey(workflowID, branch string) string {
	return fmt.Sprintf("%sworkflow:%s:branch:%s", keyPrefix, workflowID, branch)
}

func branchesKey(workflowID string) string {
	return keyPrefix + "workflow:" + workflowID + ":branches"
}

func specsKey(workflowID, branch string) string {
	return fmt.Sprintf("%sworkflow:%s:branch:%s:specs", keyPrefix, workflowID, branch)
}

func runKey(runID string) string { return keyPrefix + "run:" + runID }

func runsKey(workflowID string) string {
	return keyPrefix + "workflow:" + workflowID + ":runs"
}

func jobKey(jobID string) string { return keyPrefix + "job:" + jobID }

func jobsKey() string { return keyPrefix + "jobs" }

func cronKey(cronID string) string { return keyPrefix + "cron:" + cronID }

func cronsKey() string { return keyPrefix + "crons" }
