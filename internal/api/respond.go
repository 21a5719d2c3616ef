package api

import (
	"context"
	"net/http"

	"tabletap-be/internal/errs"
	"tabletap-be/internal/logger"
	"tabletap-be/internal/utils"

	"go.uber.org/zap"
)

// writeError maps a tagged error to its REST status. Internal details stay
// in the log, never in the response body.
func writeError(w http.ResponseWriter, ctx context.Context, err error) {
	status := errs.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.FromCtx(ctx).Error("request failed", zap.Error(err))
		msg = "internal server error"
	}
	utils.WriteJSONError(w, msg, status)
}

// writeStored re-emits a response body that went through the idempotency
// store (already marshalled JSON).
func writeStored(w http.ResponseWriter, body []byte, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
