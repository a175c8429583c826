package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/cognicore/tactica/pkg/tactica/internalerr"
	"github.com/cognicore/tactica/pkg/tactica/store"
)

var storeAll = store.ListOptions{Limit: 100}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func hasWarning(ws []internalerr.Warning, kind internalerr.Kind) bool {
	for _, w := range ws {
		if w.Kind == kind {
			return true
		}
	}
	return false
}
