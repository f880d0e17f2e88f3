package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/hookgate/common/logging"
	natsclient "github.com/telhawk-systems/hookgate/common/messaging/nats"
	"github.com/telhawk-systems/hookgate/gateway/internal/config"
	"github.com/telhawk-systems/hookgate/gateway/internal/models"
	"github.com/telhawk-systems/hookgate/gateway/internal/output"
	"github.com/telhawk-systems/hookgate/gateway/internal/store"
)

const jobsTimeout = 10 * time.Second

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect the comment job queue",
}

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many comment jobs are waiting",
	Args:  cobra.NoArgs,
	RunE:  runJobsStats,
}

var jobsPeekCmd = &cobra.Command{
	Use:   "peek",
	Short: "Show the oldest queued comment jobs without removing them",
	Args:  cobra.NoArgs,
	RunE:  runJobsPeek,
}

var jobsSeenCmd = &cobra.Command{
	Use:   "seen <comment-id>",
	Short: "Report whether a comment was already admitted and when its marker expires",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsSeen,
}

func init() {
	jobsPeekCmd.Flags().Int64P("count", "n", 10, "number of jobs to show")
	jobsPeekCmd.Flags().StringP("output", "o", "table", "output format: table, json")
	jobsCmd.AddCommand(jobsStatsCmd)
	jobsCmd.AddCommand(jobsPeekCmd)
	jobsCmd.AddCommand(jobsSeenCmd)
	rootCmd.AddCommand(jobsCmd)
}

func openStore(cfg *config.Config) (*store.Redis, error) {
	if cfg.Redis.URL == "" {
		return nil, fmt.Errorf("redis URL is required (REDIS_URL)")
	}
	return store.NewRedis(cfg.Redis.URL, cfg.Store.Timeout)
}

func runJobsStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), jobsTimeout)
	defer cancel()
	out := cmd.OutOrStdout()

	if cfg.Queue.Backend == config.BackendJetStream {
		return jetStreamStats(ctx, out, cfg)
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.QueueLength(ctx, cfg.Queue.Key)
	if err != nil {
		return err
	}
	output.Info(out, "Queue %s: %d pending jobs", cfg.Queue.Key, n)
	return nil
}

func jetStreamStats(ctx context.Context, out io.Writer, cfg *config.Config) error {
	js, err := natsclient.NewJetStreamClient(natsclient.DefaultConfig(cfg.Queue.NatsURL), logging.Discard().Logger)
	if err != nil {
		return err
	}
	defer js.Close()

	stream, err := js.JetStream().Stream(ctx, natsclient.CommentJobsStream.Name)
	if err != nil {
		return fmt.Errorf("failed to open stream %s: %w", natsclient.CommentJobsStream.Name, err)
	}
	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stream info: %w", err)
	}
	output.Info(out, "Stream %s: %d pending jobs (%d bytes)", info.Config.Name, info.State.Msgs, info.State.Bytes)
	return nil
}

func runJobsPeek(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt64("count")
	format, _ := cmd.Flags().GetString("output")
	if count <= 0 {
		return fmt.Errorf("count must be positive")
	}

	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	if cfg.Queue.Backend != config.BackendRedis {
		return fmt.Errorf("peek is only supported for the redis queue backend")
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), jobsTimeout)
	defer cancel()
	return peekJobs(ctx, cmd.OutOrStdout(), s, cfg.Queue.Key, count, format)
}

func peekJobs(ctx context.Context, out io.Writer, s *store.Redis, key string, count int64, format string) error {
	raw, err := s.Peek(ctx, key, count)
	if err != nil {
		return err
	}

	jobs := make([]models.CommentEvent, 0, len(raw))
	for _, item := range raw {
		var job models.CommentEvent
		if err := json.Unmarshal([]byte(item), &job); err != nil {
			output.Warn(out, "Skipping unreadable job: %s", item)
			continue
		}
		jobs = append(jobs, job)
	}

	switch format {
	case "json":
		return output.JSON(out, jobs)
	case "table":
		if len(jobs) == 0 {
			output.Info(out, "Queue %s is empty", key)
			return nil
		}
		table := output.NewTable("COMMENT ID", "MEDIA ID", "EVENT TIME")
		for _, job := range jobs {
			table.AddRow(job.CommentID, job.MediaID, strconv.FormatInt(job.EventTime, 10)+" ("+job.Time().Format(time.RFC3339)+")")
		}
		table.Render(out)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func runJobsSeen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), jobsTimeout)
	defer cancel()
	return reportSeen(ctx, cmd.OutOrStdout(), s, cfg.Dedup.KeyPrefix+args[0])
}

func reportSeen(ctx context.Context, out io.Writer, s *store.Redis, key string) error {
	ttl, err := s.MarkerTTL(ctx, key)
	if err != nil {
		return err
	}
	if ttl == 0 {
		output.Info(out, "%s: not seen; the next delivery will be enqueued", key)
		return nil
	}
	output.Success(out, "%s: seen; marker expires in %s", key, ttl.Round(time.Second))
	return nil
}
