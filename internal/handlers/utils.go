package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const contextSubjectKey contextKey = "sub"

func userIDFromContext(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(contextSubjectKey).(string)
	if !ok || strings.TrimSpace(subject) == "" {
		return "", errors.New("missing subject")
	}
	return subject, nil
}

// ownerIDFromContext resolves the authenticated subject as a story owner
// reference.
func ownerIDFromContext(ctx context.Context) (primitive.ObjectID, error) {
	subject, err := userIDFromContext(ctx)
	if err != nil {
		return primitive.NilObjectID, err
	}
	oid, err := primitive.ObjectIDFromHex(subject)
	if err != nil {
		return primitive.NilObjectID, errors.New("invalid subject")
	}
	return oid, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: true, Message: message})
}

// ErrorResponse is the error payload shared by every endpoint.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}
