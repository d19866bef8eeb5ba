package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mayank-dotcom/career-bot/internal/util"
	"github.com/mayank-dotcom/career-bot/pkg/rpcclient"
	"github.com/mayank-dotcom/career-bot/services/api/internal/app"
	"github.com/mayank-dotcom/career-bot/services/api/internal/security"
)

const codeMethodNotSupported = "METHOD_NOT_SUPPORTED"

type callFunc func(ctx context.Context, raw json.RawMessage) (any, error)

// binding attaches transport policy to a registry entry.
type binding struct {
	proc    rpcclient.Procedure
	limiter string
	event   string
	call    callFunc
}

type rpcResult struct {
	Result any `json:"result"`
}

type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type rpcErrorBody struct {
	Error rpcError `json:"error"`
}

type bearerKey struct{}

func withBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

func bearerFromContext(ctx context.Context) string {
	token, _ := ctx.Value(bearerKey{}).(string)
	return token
}

// bind adapts a typed procedure to the JSON transport.
func bind[In, Out any](fn func(context.Context, In) (Out, error)) callFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in In
		if err := decodeInput(raw, &in); err != nil {
			return nil, err
		}
		return fn(ctx, in)
	}
}

func decodeInput(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return &app.Error{Kind: app.KindValidation, Message: "Invalid input", Err: err}
	}
	return nil
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeRPCFailure(w, http.StatusMethodNotAllowed, codeMethodNotSupported, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"procedures": rpcclient.Procedures})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/rpc/"), "/")
	b, ok := s.procedures[name]
	if !ok {
		s.writeRPCError(w, r, &app.Error{Kind: app.KindNotFound, Message: fmt.Sprintf("No procedure found on path %q", name)})
		return
	}
	if !methodAllowed(b.proc.Kind, r.Method) {
		writeRPCFailure(w, http.StatusMethodNotAllowed, codeMethodNotSupported,
			fmt.Sprintf("Unsupported %s for %s procedure %s", r.Method, b.proc.Kind, name))
		return
	}

	var raw json.RawMessage
	if r.Method == http.MethodGet {
		raw = json.RawMessage(r.URL.Query().Get("input"))
	} else {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRPCBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeRPCFailure(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
				return
			}
			s.writeRPCError(w, r, &app.Error{Kind: app.KindValidation, Message: "Invalid input", Err: err})
			return
		}
		raw = body
	}

	if b.limiter != "" {
		if wait, ok := s.allowRate(ctx, r, b.limiter); !ok {
			s.audit(r, eventOr(b.event, "rpc."+name), security.OutcomeRateLimited)
			setRetryAfter(w, wait)
			s.writeRPCError(w, r, &app.Error{Kind: app.KindRateLimited, Message: "Too many requests, please try again later"})
			return
		}
	}

	token, _ := bearerToken(r)
	ctx = withBearer(ctx, token)
	if s.requireAuth && b.proc.Auth {
		claims, err := s.app.Authenticate(ctx, token)
		if err != nil {
			s.audit(r, "auth.authorize", security.OutcomeFail, "procedure", name, "reason", app.PublicMessage(err))
			s.writeRPCError(w, r, err)
			return
		}
		ctx = app.WithPrincipal(ctx, claims.UserID)
		ctx = util.ContextWithLogger(ctx, util.LoggerFromContext(ctx).With("user_id", claims.UserID))
	}

	out, err := b.call(ctx, raw)
	if err != nil {
		if b.event != "" {
			s.audit(r, b.event, security.OutcomeFail, "reason", app.PublicMessage(err))
		}
		if app.KindOf(err) == app.KindForbidden {
			s.audit(r, "chat.access", security.OutcomeForbidden, "procedure", name)
		}
		s.writeRPCError(w, r, err)
		return
	}
	if b.event != "" {
		attrs := []any{}
		if res, ok := out.(app.AuthResult); ok {
			attrs = append(attrs, "user_id", res.User.ID)
		}
		s.audit(r, b.event, "success", attrs...)
	}
	writeJSON(w, http.StatusOK, rpcResult{Result: out})
}

func methodAllowed(kind rpcclient.Kind, method string) bool {
	if method == http.MethodPost {
		return true
	}
	return kind == rpcclient.KindQuery && method == http.MethodGet
}

func eventOr(event, fallback string) string {
	if event != "" {
		return event
	}
	return fallback
}

func (s *Server) writeRPCError(w http.ResponseWriter, r *http.Request, err error) {
	kind := app.KindOf(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		util.LoggerFromContext(r.Context()).Error("rpc failed", "path", r.URL.Path, "err", err)
	}
	writeRPCFailure(w, status, string(kind), app.PublicMessage(err))
}

func writeRPCFailure(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, rpcErrorBody{Error: rpcError{Code: code, Message: msg}})
}
