package main

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"matching-platform/pkg/registry"
)

var (
	scaffoldRoot  string
	scaffoldForce bool
)

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold <taskType>",
	Short: "Generate a worker package skeleton for a registered activity",
	Long: `scaffold writes config.go, models.go and handler.go for the activity under
internal/workers/<category>/<taskType>. Existing files are kept unless --force is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runScaffold,
}

func init() {
	scaffoldCmd.Flags().StringVar(&scaffoldRoot, "root", "internal/workers", "workers directory")
	scaffoldCmd.Flags().BoolVar(&scaffoldForce, "force", false, "overwrite existing files")
}

type workerData struct {
	Dir         string
	PackageName string
	TaskType    string
	DisplayName string
	Timeout     string
	Inputs      []field
	Outputs     []field
}

type field struct {
	Name string
	Tag  string
}

func newWorkerData(a registry.Activity) workerData {
	return workerData{
		Dir:         filepath.Join(a.Category, a.TaskType),
		PackageName: strings.ReplaceAll(a.TaskType, "-", ""),
		TaskType:    a.TaskType,
		DisplayName: a.DisplayName,
		Timeout:     a.Timeout,
		Inputs:      fields(a.InputVariables),
		Outputs:     fields(a.OutputVariables),
	}
}

func fields(vars []string) []field {
	out := make([]field, len(vars))
	for i, v := range vars {
		out[i] = field{Name: exportedName(v), Tag: v}
	}
	return out
}

// exportedName turns a camelCase variable into an exported Go identifier, keeping the Id
// suffix Go-style (leadId -> LeadID).
func exportedName(v string) string {
	if v == "" {
		return v
	}
	name := strings.ToUpper(v[:1]) + v[1:]
	if strings.HasSuffix(name, "Id") {
		name = strings.TrimSuffix(name, "Id") + "ID"
	}
	return name
}

// render executes the skeleton templates and gofmts the result, keyed by file name.
func render(d workerData) (map[string][]byte, error) {
	out := make(map[string][]byte, len(skeletons))
	for name, tmpl := range skeletons {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, d); err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		src, err := format.Source(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("format %s: %w", name, err)
		}
		out[name] = src
	}
	return out, nil
}

func runScaffold(cmd *cobra.Command, args []string) error {
	reg, err := load()
	if err != nil {
		return err
	}
	a, ok := reg.Find(args[0])
	if !ok {
		return fmt.Errorf("no activity with task type %q", args[0])
	}

	d := newWorkerData(a)
	files, err := render(d)
	if err != nil {
		return err
	}

	dir := filepath.Join(scaffoldRoot, d.Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, src := range files {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil && !scaffoldForce {
			fmt.Fprintf(cmd.OutOrStdout(), "skip   %s (exists)\n", path)
			continue
		}
		if err := os.WriteFile(path, src, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "write  %s\n", path)
	}
	return nil
}

var skeletons = map[string]*template.Template{
	"config.go":  template.Must(template.New("config").Parse(configTemplate)),
	"models.go":  template.Must(template.New("models").Parse(modelsTemplate)),
	"handler.go": template.Must(template.New("handler").Parse(handlerTemplate)),
}

const configTemplate = `// internal/workers/{{ .Dir }}/config.go
package {{ .PackageName }}

import (
	"time"

	"matching-platform/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(wc config.WorkerConfig) *Config {
	cfg := &Config{Timeout: 10 * time.Second}
	if wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	return cfg
}
`

const modelsTemplate = `// internal/workers/{{ .Dir }}/models.go
package {{ .PackageName }}

type Input struct {
{{- range .Inputs }}
	{{ .Name }} interface{} ` + "`json:\"{{ .Tag }}\"`" + `
{{- end }}
}

type Output struct {
{{- range .Outputs }}
	{{ .Name }} interface{} ` + "`json:\"{{ .Tag }}\"`" + `
{{- end }}
}
`

const handlerTemplate = `// internal/workers/{{ .Dir }}/handler.go
package {{ .PackageName }}

import (
	"context"
	"encoding/json"
	"errors"

	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "{{ .TaskType }}"
)

var ErrNotImplemented = errors.New("NOT_IMPLEMENTED")

// Handler runs the {{ .DisplayName }} activity.
type Handler struct {
	config *Config
	errors *stderrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		errors: stderrors.NewErrorHandler(scoped),
		logger: scoped,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, stderrors.NewInvalidJobInputError(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, stderrors.AsStandardError(err))
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	return nil, ErrNotImplemented
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, stdErr *stderrors.StandardError) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errors.HandleJobError(context.Background(), client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
`
