package server

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/mayank-dotcom/career-bot/internal/util"
	"github.com/mayank-dotcom/career-bot/services/api/internal/app"
	"github.com/mayank-dotcom/career-bot/services/api/internal/security"
)

const multipartMemoryBytes = 8 << 20

// handleParsePDF accepts a multipart "file" field and returns its text. It
// answers with the flat {"error": msg} body rather than the RPC envelope.
func (s *Server) handleParsePDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := util.LoggerFromContext(ctx)
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if wait, ok := s.allowRate(ctx, r, limitParsePDF); !ok {
		s.audit(r, "document.parse", security.OutcomeRateLimited)
		setRetryAfter(w, wait)
		writeError(w, http.StatusTooManyRequests, "too many uploads, please try again later")
		return
	}

	userID := ""
	if token, ok := bearerToken(r); ok {
		claims, err := s.app.Authenticate(ctx, token)
		if err != nil {
			s.audit(r, "auth.authorize", security.OutcomeFail, "procedure", "parse-pdf", "reason", app.PublicMessage(err))
			writeError(w, http.StatusUnauthorized, app.PublicMessage(err))
			return
		}
		userID = claims.UserID
	} else if s.requireAuth {
		s.audit(r, "auth.authorize", security.OutcomeFail, "procedure", "parse-pdf", "reason", "missing_token")
		writeError(w, http.StatusUnauthorized, app.ErrAuthRequired.Message)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		if isTooLarge(err) {
			s.audit(r, "document.upload", security.OutcomeRejected, "reason", "too_large")
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		s.audit(r, "document.upload", security.OutcomeRejected, "reason", "bad_form")
		writeError(w, http.StatusBadRequest, app.ErrNoFile.Message)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	file, header, err := r.FormFile("file")
	if err != nil {
		s.audit(r, "document.upload", security.OutcomeRejected, "reason", "no_file")
		writeError(w, http.StatusBadRequest, app.ErrNoFile.Message)
		return
	}
	defer file.Close()
	data, err := readUpload(file, header)
	if err != nil {
		logger.Error("read upload failed", "file", header.Filename, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to parse PDF: "+err.Error())
		return
	}

	res, err := s.app.ParseDocument(ctx, app.ParseDocumentInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		UserID:      userID,
	})
	if err != nil {
		if errors.Is(err, app.ErrParseFailed) {
			msg := app.ErrParseFailed.Message
			var appErr *app.Error
			if errors.As(err, &appErr) && appErr.Err != nil {
				msg += ": " + appErr.Err.Error()
			}
			logger.Error("parse pdf failed", "file", header.Filename, "err", err)
			s.audit(r, "document.parse", security.OutcomeFail, "file", header.Filename)
			writeError(w, http.StatusInternalServerError, msg)
			return
		}
		if app.KindOf(err) == app.KindValidation {
			s.audit(r, "document.upload", security.OutcomeRejected, "reason", app.PublicMessage(err))
		}
		writeError(w, statusForKind(app.KindOf(err)), app.PublicMessage(err))
		return
	}
	logger.Info("pdf parsed", "document_id", res.DocumentID, "chars", len(res.Text), "stored", userID != "")
	writeJSON(w, http.StatusOK, res)
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

func readUpload(file multipart.File, header *multipart.FileHeader) ([]byte, error) {
	if header.Size > 0 {
		buf := make([]byte, header.Size)
		if _, err := io.ReadFull(file, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}
	return io.ReadAll(file)
}
