package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("upstream exploded")
	err := Wrap(CodeDependency, cause, "listing products")

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to survive errors.Is")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %q", err.Code())
	}
	if err.Error() != "listing products: upstream exploded" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	inner := New(CodeValidation, "season key required")
	wrapped := fmt.Errorf("handling request: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error from chain")
	}
	if typed.Code() != CodeValidation {
		t.Fatalf("unexpected code %q", typed.Code())
	}
	if !Is(wrapped, CodeValidation) {
		t.Fatal("Is should match the code through the chain")
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestMetadataRateLimitRetryable(t *testing.T) {
	meta := MetadataFor(CodeRateLimit)
	if meta.HTTPStatus != http.StatusTooManyRequests {
		t.Fatalf("unexpected status %d", meta.HTTPStatus)
	}
	if !meta.Retryable {
		t.Fatal("rate limit errors should be retryable")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeInternal, stdErrors.New("root"), "outer")
	d := Dump(err)
	if d.Code != CodeInternal {
		t.Fatalf("unexpected code %q", d.Code)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected chain of at least 2, got %d", len(d.Chain))
	}
}
