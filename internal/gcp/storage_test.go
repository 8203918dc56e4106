package gcp

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestIsPreconditionFailed(t *testing.T) {
	t.Parallel()

	precondition := &googleapi.Error{Code: 412, Message: "conditionNotMet"}
	if !isPreconditionFailed(precondition) {
		t.Error("bare 412 not recognized")
	}
	// Writer.Close can hand the API error back wrapped.
	if !isPreconditionFailed(fmt.Errorf("googleapi: %w", precondition)) {
		t.Error("wrapped 412 not recognized")
	}

	if isPreconditionFailed(&googleapi.Error{Code: 403}) {
		t.Error("non-412 API error treated as precondition failure")
	}
	if isPreconditionFailed(errors.New("connection reset")) {
		t.Error("plain error treated as precondition failure")
	}
	if isPreconditionFailed(nil) {
		t.Error("nil error treated as precondition failure")
	}
}
