package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"

	"github.com/walteh/pyhighlight/pkg/logging"
)

// Notifier sends a notification to the client. *jrpc2.Server satisfies it.
type Notifier interface {
	Notify(ctx context.Context, method string, params any) error
}

// LSPWriter turns zerolog JSON entries into window/logMessage notifications.
type LSPWriter struct {
	mu       sync.Mutex
	notifier Notifier
	ctx      context.Context
}

func NewLSPWriter(ctx context.Context, notifier Notifier) *LSPWriter {
	return &LSPWriter{notifier: notifier, ctx: ctx}
}

func (w *LSPWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var logEntry map[string]any
	if err := json.Unmarshal(p, &logEntry); err != nil {
		return len(p), nil // skip malformed entries
	}

	level := ParseMessageTypeFromZerolog(extractField(logEntry, "level", "info"))
	msg := extractField(logEntry, "message", "")
	id := extractField(logEntry, "id", "")
	source := extractField(logEntry, "caller", "")
	delete(logEntry, "time")

	var sb strings.Builder
	if id != logging.ID {
		sb.WriteString("[dependency] ")
	}
	sb.WriteString(msg)

	keys := make([]string, 0, len(logEntry))
	for k := range logEntry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, logEntry[k])
	}
	if source != "" {
		fmt.Fprintf(&sb, " (%s)", source)
	}

	err = w.notifier.Notify(w.ctx, "window/logMessage", &LogMessageParams{
		Type:    level,
		Message: sb.String(),
	})
	return len(p), err
}

func extractField(entry map[string]any, key, defaultValue string) string {
	if v, ok := entry[key].(string); ok {
		delete(entry, key)
		return v
	}
	return defaultValue
}

// ApplyLSPWriter returns ctx carrying a logger that forwards to the client,
// keeping the level of the logger already in ctx.
func ApplyLSPWriter(ctx context.Context, notifier Notifier) context.Context {
	level := zerolog.Ctx(ctx).GetLevel()
	return logging.NewJSON(NewLSPWriter(ctx, notifier), level).WithContext(ctx)
}

// rpcLogger traces raw requests and responses to a logger that does not
// forward to the client, so tracing a logMessage never produces another one.
type rpcLogger struct {
	logger *zerolog.Logger
}

var _ jrpc2.RPCLogger = (*rpcLogger)(nil)

func (l *rpcLogger) LogRequest(ctx context.Context, req *jrpc2.Request) {
	l.logger.Trace().Str("rpc_params", req.ParamString()).Str("rpc_id", req.ID()).Str("rpc_method", req.Method()).Msg("client request")
}

func (l *rpcLogger) LogResponse(ctx context.Context, res *jrpc2.Response) {
	l.logger.Trace().Str("rpc_result", res.ResultString()).Str("rpc_id", res.ID()).Msg("server response")
}
