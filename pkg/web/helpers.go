package web

import (
	"net/http"

	"github.com/joeydtaylor/steeze-function/pkg/codec"
)

func writeJSON(w http.ResponseWriter, payload []byte, status int) {
	w.Header().Set("Content-Type", codec.JSON.ContentType())
	w.WriteHeader(status)
	if len(payload) > 0 {
		_, _ = w.Write(payload)
		return
	}
	_, _ = w.Write([]byte(`{}`))
}

func writeError(w http.ResponseWriter, status int, err error) {
	body, merr := codec.JSON.Marshal(map[string]string{"error": err.Error()})
	if merr != nil {
		body = nil
	}
	writeJSON(w, body, status)
}
