package sitebridge

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"lwfm/internal/lwfmerr"
	"lwfm/internal/serializer"
	"lwfm/pkg/lwfm"
)

func defaultExec(ctx context.Context, venv string, command string) ([]byte, error) {
	interpreter := "python3"
	if venv != "" {
		interpreter = strings.TrimRight(venv, "/") + "/bin/python3"
	}
	cmd := exec.CommandContext(ctx, interpreter, "-c", command)
	return cmd.CombinedOutput()
}

// invokeIsolatedSubmit spawns a child interpreter in desc.Venv to run the
// site's run.submit entrypoint, returning the parsed JobStatus carried on
// the RESULT_MARKER line of its stdout.
func (b *Bridge) invokeIsolatedSubmit(ctx context.Context, desc lwfm.SiteDescriptor, defn *lwfm.JobDefn, parent *lwfm.JobContext, computeType string, runArgs map[string]string) (*lwfm.JobStatus, error) {
	out, err := b.runIsolated(ctx, desc, lwfm.PillarRun, "submit", map[string]any{
		"defn":        defn,
		"parent":      parent,
		"computeType": computeType,
		"runArgs":     runArgs,
	})
	if err != nil {
		return nil, err
	}
	return decodeResult[lwfm.JobStatus](out, "sitebridge.Submit")
}

// invokeIsolatedGetStatus spawns a child interpreter to poll status for
// jobID on an isolated site.
func (b *Bridge) invokeIsolatedGetStatus(ctx context.Context, desc lwfm.SiteDescriptor, jobID string) (*lwfm.JobStatus, error) {
	out, err := b.runIsolated(ctx, desc, lwfm.PillarRun, "getStatus", map[string]any{"jobId": jobID})
	if err != nil {
		return nil, err
	}
	return decodeResult[lwfm.JobStatus](out, "sitebridge.GetStatus")
}

// runIsolated builds a dotted pillar.method invocation, marshals its
// arguments (primitives as literal quoted text, everything else through
// the serializer) and executes it via the configured ExecFunc.
func (b *Bridge) runIsolated(ctx context.Context, desc lwfm.SiteDescriptor, pillar lwfm.Pillar, method string, args map[string]any) ([]byte, error) {
	command, err := buildInvocation(desc, pillar, method, args)
	if err != nil {
		return nil, lwfmerr.New(lwfmerr.CodeMalformedInput, "sitebridge.runIsolated", err)
	}
	out, err := b.exec(ctx, desc.Venv, command)
	if err != nil {
		if b.log != nil {
			b.log.DispatchFailed(desc.Name, string(pillar)+"."+method, err)
		}
		return nil, lwfmerr.New(lwfmerr.CodeDispatch, "sitebridge.runIsolated", fmt.Errorf("%s.%s on %q: %w: %s", pillar, method, desc.Name, err, string(out)))
	}
	return out, nil
}

// buildInvocation renders a one-line Python entrypoint call. Primitive
// argument values are interpolated as literal text; anything else is
// passed through the serializer and decoded on the far side. The driver
// class is resolved per pillar so a site can mix, e.g., a shared auth
// module with a site-specific run module.
func buildInvocation(desc lwfm.SiteDescriptor, pillar lwfm.Pillar, method string, args map[string]any) (string, error) {
	var parts []string
	for k, v := range args {
		rendered, err := renderArg(v)
		if err != nil {
			return "", err
		}
		parts = append(parts, k+"="+rendered)
	}
	return fmt.Sprintf("import %s.%s as _site; _site.%s(%s)", desc.ClassFor(pillar), pillar, method, strings.Join(parts, ", ")), nil
}

func renderArg(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "None", nil
	case string:
		return strconv.Quote(t), nil
	case bool:
		if t {
			return "True", nil
		}
		return "False", nil
	case int, int64, float64:
		return fmt.Sprintf("%v", t), nil
	default:
		enc, err := serializer.Serialize(v)
		if err != nil {
			return "", err
		}
		return strconv.Quote(enc), nil
	}
}

// decodeResult scans command output for the RESULT_MARKER line and
// deserializes the value that follows it.
func decodeResult[T any](out []byte, op string) (*T, error) {
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, ResultMarker) {
			payload := strings.TrimPrefix(line, ResultMarker)
			return serializer.Deserialize[T](strings.TrimSpace(payload))
		}
	}
	return nil, lwfmerr.New(lwfmerr.CodeSerialization, op, fmt.Errorf("no %s line found in isolated invocation output", strings.TrimSpace(ResultMarker)))
}
