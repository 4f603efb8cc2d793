package command

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	storefs "github.com/goliatone/go-carousel/adapters/store/fs"
	"github.com/goliatone/go-carousel/carousel"
	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
)

// BatchLoader loads export requests from a source.
type BatchLoader func(ctx context.Context) ([]carousel.ExportRequest, error)

// BatchLimits bounds batch execution throughput.
type BatchLimits struct {
	MaxRequests int
	MinInterval time.Duration
}

// BatchCommand runs a list of exports one after the other from the CLI or
// a cron schedule. The first failed export stops the batch.
type BatchCommand struct {
	exporter   Exporter
	loader     BatchLoader
	sink       func(out carousel.ExportOutput) carousel.ArtifactSink
	cliConfig  gcmd.CLIConfig
	cronConfig gcmd.HandlerConfig
	limits     BatchLimits
	logger     carousel.Logger
	sleep      func(time.Duration)
}

// BatchOption customizes batch commands.
type BatchOption func(*BatchCommand)

// WithBatchCLIConfig overrides CLI configuration.
func WithBatchCLIConfig(cfg gcmd.CLIConfig) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.cliConfig = cfg
	}
}

// WithBatchCronConfig overrides cron configuration.
func WithBatchCronConfig(cfg gcmd.HandlerConfig) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.cronConfig = cfg
	}
}

// WithBatchLimits overrides batch execution limits.
func WithBatchLimits(limits BatchLimits) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.limits = limits
	}
}

// WithBatchSink saves the artifacts of every run to the returned sink.
func WithBatchSink(sink func(out carousel.ExportOutput) carousel.ArtifactSink) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.sink = sink
	}
}

// WithBatchLogger sets the batch logger.
func WithBatchLogger(logger carousel.Logger) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.logger = logger
	}
}

// NewBatchCommand creates a batch export CLI/Cron command.
func NewBatchCommand(exporter Exporter, loader BatchLoader, opts ...BatchOption) *BatchCommand {
	cmd := &BatchCommand{
		exporter: exporter,
		loader:   loader,
		cliConfig: gcmd.CLIConfig{
			Path:        []string{"carousel-batch"},
			Description: "Export a list of carousels",
			Group:       "carousel",
		},
		cronConfig: gcmd.HandlerConfig{Expression: "0 * * * *"},
		logger:     carousel.NopLogger{},
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cmd)
		}
	}
	return cmd
}

// CronHandler executes the loader batch.
func (c *BatchCommand) CronHandler() func() error {
	return func() error {
		_, err := c.run(context.Background(), "", "")
		return err
	}
}

// CronOptions returns cron configuration.
func (c *BatchCommand) CronOptions() gcmd.HandlerConfig {
	if c == nil {
		return gcmd.HandlerConfig{}
	}
	return c.cronConfig
}

// CLIHandler exposes the CLI handler.
func (c *BatchCommand) CLIHandler() any {
	return &batchCLI{cmd: c}
}

// CLIOptions returns CLI configuration.
func (c *BatchCommand) CLIOptions() gcmd.CLIConfig {
	if c == nil {
		return gcmd.CLIConfig{}
	}
	return c.cliConfig
}

func (c *BatchCommand) run(ctx context.Context, from, outDir string) (int, error) {
	if c == nil {
		return 0, errors.New("batch command is nil", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	if c.exporter == nil {
		return 0, errors.New("carousel service is required", errors.CategoryValidation).
			WithTextCode("SERVICE_REQUIRED")
	}

	requests, err := c.loadRequests(ctx, from)
	if err != nil {
		return 0, err
	}

	sink := c.sink
	if strings.TrimSpace(outDir) != "" {
		store := storefs.NewStore(outDir)
		sink = func(carousel.ExportOutput) carousel.ArtifactSink { return store }
	}

	count := 0
	for i, req := range requests {
		if c.limits.MaxRequests > 0 && count >= c.limits.MaxRequests {
			break
		}
		out, err := c.exporter.Export(ctx, req)
		if err != nil {
			c.logger.Errorf("carousel batch: request %d (%s) failed: %v", i, req.Format, err)
			return count, carousel.AsGoError(err)
		}
		if sink != nil {
			if err := saveAll(ctx, sink(out), out.Artifacts); err != nil {
				return count, err
			}
		}
		c.logger.Infof("carousel batch: %s export %s produced %d artifacts", out.Result.Format, out.Result.ID, len(out.Artifacts))
		count++
		if c.limits.MinInterval > 0 && c.sleep != nil {
			c.sleep(c.limits.MinInterval)
		}
	}
	return count, nil
}

func saveAll(ctx context.Context, sink carousel.ArtifactSink, artifacts []carousel.Artifact) error {
	if sink == nil {
		return nil
	}
	for _, artifact := range artifacts {
		if err := sink.Save(ctx, artifact); err != nil {
			return errors.Wrap(err, errors.CategoryExternal, "save batch artifact failed").
				WithTextCode("BATCH_SAVE_FAILED")
		}
	}
	return nil
}

func (c *BatchCommand) loadRequests(ctx context.Context, from string) ([]carousel.ExportRequest, error) {
	if strings.TrimSpace(from) != "" {
		return loadBatchRequestsFromFile(from)
	}
	if c.loader == nil {
		return nil, errors.New("batch loader not configured", errors.CategoryValidation).
			WithTextCode("LOADER_REQUIRED")
	}
	return c.loader(ctx)
}

type batchCLI struct {
	cmd  *BatchCommand
	From string `kong:"name='from',help='Path to a JSON list of carousel export requests'"`
	Out  string `kong:"name='out',help='Directory receiving the exported files'"`
}

func (c *batchCLI) Run() error {
	if c == nil || c.cmd == nil {
		return errors.New("batch command is required", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	_, err := c.cmd.run(context.Background(), c.From, c.Out)
	return err
}

// FileLoader loads batch requests from a JSON file on every run.
func FileLoader(path string) BatchLoader {
	return func(context.Context) ([]carousel.ExportRequest, error) {
		return loadBatchRequestsFromFile(path)
	}
}

func loadBatchRequestsFromFile(path string) ([]carousel.ExportRequest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "read batch file failed").
			WithTextCode("BATCH_FILE_READ")
	}

	var requests []carousel.ExportRequest
	if err := json.Unmarshal(content, &requests); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "batch file invalid JSON").
			WithTextCode("BATCH_FILE_INVALID")
	}
	return requests, nil
}
