package testsupport

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Form returns a built-in form by id, failing the test when it is missing.
func Form(t testing.TB, id string) model.FormModel {
	t.Helper()

	registry, err := model.Builtin()
	if err != nil {
		t.Fatalf("load builtin forms: %v", err)
	}
	form, ok := registry.Form(id)
	if !ok {
		t.Fatalf("form %q not registered", id)
	}
	return form
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
