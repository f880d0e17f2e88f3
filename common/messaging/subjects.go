// Package messaging defines the subject names hookgate publishes on.
package messaging

// Subjects follow {domain}.{resource}.{action}.
const (
	// SubjectCommentJobs is the wildcard captured by the comment jobs stream.
	SubjectCommentJobs = "ig.comment_jobs.>"

	// SubjectCommentJobsCreated carries one admitted comment job per message.
	SubjectCommentJobsCreated = "ig.comment_jobs.created"
)

