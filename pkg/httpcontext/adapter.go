package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/scheduler/pkg/logger"
)

// Key represents a context value key exported for reuse.
type Key string

const (
	KeyRemoteAddr Key = "remote_addr"
	KeyUserAgent  Key = "user_agent"
	KeyUserID     Key = "user_id"
	KeyUserRole   Key = "user_role"
)

// Adapter converts fasthttp.RequestCtx into a stdlib context with a deadline
// and request metadata.
type Adapter struct {
	timeout time.Duration
}

func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{timeout: timeout}
}

// Attach creates a context bounded by the adapter timeout and copies the
// request id, peer, user agent and authenticated principal into it. The
// request id is echoed in the X-Request-ID response header.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithTimeout(context.Background(), a.timeout)

	reqID := getRequestID(ctx)
	stdCtx = appLogger.ContextWithRequestID(stdCtx, reqID)
	if ctx == nil {
		return stdCtx, cancel
	}
	ctx.Response.Header.Set("X-Request-ID", reqID)

	if remoteAddr := ctx.RemoteAddr(); remoteAddr != nil {
		stdCtx = context.WithValue(stdCtx, KeyRemoteAddr, remoteAddr.String())
	}
	if ua := string(ctx.Request.Header.UserAgent()); ua != "" {
		stdCtx = context.WithValue(stdCtx, KeyUserAgent, ua)
	}
	if userID, ok := ctx.UserValue(string(KeyUserID)).(string); ok && userID != "" {
		stdCtx = context.WithValue(stdCtx, KeyUserID, userID)
	}
	if role, ok := ctx.UserValue(string(KeyUserRole)).(string); ok && role != "" {
		stdCtx = context.WithValue(stdCtx, KeyUserRole, role)
	}

	return stdCtx, cancel
}

// UserID returns the authenticated user id carried by ctx.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(KeyUserID).(string)
	return id
}

func getRequestID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return uuid.NewString()
	}
	if header := strings.TrimSpace(string(ctx.Request.Header.Peek("X-Request-ID"))); header != "" {
		return header
	}
	return uuid.NewString()
}
