package server

import (
	"context"
	"strings"

	"github.com/mayank-dotcom/career-bot/pkg/domain"
	"github.com/mayank-dotcom/career-bot/pkg/rpcclient"
	"github.com/mayank-dotcom/career-bot/services/api/internal/app"
)

const (
	limitSignUp      = "signup"
	limitSignIn      = "signin"
	limitSendMessage = "send_message"
	limitParsePDF    = "parse_pdf"
)

// OKResult is returned by procedures without a payload.
type OKResult struct {
	OK bool `json:"ok"`
}

func (s *Server) bindings() map[string]binding {
	a := s.app
	calls := map[string]binding{
		rpcclient.ProcSignUp:              {limiter: limitSignUp, event: "auth.signup", call: bind(a.SignUp)},
		rpcclient.ProcSignIn:              {limiter: limitSignIn, event: "auth.signin", call: bind(a.SignIn)},
		rpcclient.ProcSignOut:             {event: "auth.signout", call: bind(s.signOut)},
		rpcclient.ProcGetCurrentUser:      {event: "auth.session", call: bind(s.currentUser)},
		rpcclient.ProcUpdateUser:          {call: bind(a.UpdateUser)},
		rpcclient.ProcGetUserByID:         {call: bind(a.GetUserByID)},
		rpcclient.ProcCreateChat:          {call: bind(a.CreateChat)},
		rpcclient.ProcGetChats:            {call: bind(a.GetChats)},
		rpcclient.ProcGetMessages:         {call: bind(a.GetMessages)},
		rpcclient.ProcSendMessage:         {limiter: limitSendMessage, call: bind(a.SendMessage)},
		rpcclient.ProcUpdateMessageStatus: {call: bind(a.UpdateMessageStatus)},
	}
	out := make(map[string]binding, len(rpcclient.Procedures))
	for _, p := range rpcclient.Procedures {
		b, ok := calls[p.Name]
		if !ok {
			continue
		}
		b.proc = p
		out[p.Name] = b
	}
	return out
}

func (s *Server) signOut(ctx context.Context, in app.TokenInput) (OKResult, error) {
	if err := s.app.SignOut(ctx, tokenOrBearer(ctx, in)); err != nil {
		return OKResult{}, err
	}
	return OKResult{OK: true}, nil
}

func (s *Server) currentUser(ctx context.Context, in app.TokenInput) (domain.User, error) {
	return s.app.CurrentUser(ctx, tokenOrBearer(ctx, in))
}

// tokenOrBearer lets token procedures read the Authorization header when the
// input omits the token.
func tokenOrBearer(ctx context.Context, in app.TokenInput) app.TokenInput {
	if strings.TrimSpace(in.Token) == "" {
		in.Token = bearerFromContext(ctx)
	}
	return in
}
