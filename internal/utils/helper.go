package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
)

func StrPtr(s string) *string {
	return &s
}

func Int64Ptr(n int64) *int64 {
	return &n
}

func PtrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func WriteJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Fingerprint hashes the semantically relevant parts of a request payload
// for idempotency-conflict detection. The input must marshal
// deterministically (structs, not maps).
func Fingerprint(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		// Marshal of our own request structs cannot fail; hash the error
		// text so a broken caller still gets a stable, non-empty key.
		raw = []byte(err.Error())
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
