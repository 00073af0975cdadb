package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorf(t *testing.T) {
	err := Errorf(KindValidation, "field %q missing", "task")
	if err.Kind != KindValidation {
		t.Errorf("kind = %q, want %q", err.Kind, KindValidation)
	}
	if err.Message != `field "task" missing` {
		t.Errorf("message = %q", err.Message)
	}
	if !strings.Contains(err.Error(), "validation:") {
		t.Errorf("Error() = %q, want kind prefix", err.Error())
	}
}

func TestAsError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		if got := AsError(nil); got != nil {
			t.Errorf("AsError(nil) = %v, want nil", got)
		}
	})

	t.Run("structured error passes through", func(t *testing.T) {
		orig := Errorf(KindTimeout, "deadline")
		got := AsError(orig)
		if got != orig {
			t.Errorf("AsError returned a different error: %v", got)
		}
	})

	t.Run("wrapped structured error unwraps", func(t *testing.T) {
		orig := Errorf(KindPlanning, "no plan block")
		wrapped := fmt.Errorf("generate: %w", orig)
		got := AsError(wrapped)
		if got.Kind != KindPlanning {
			t.Errorf("kind = %q, want planning", got.Kind)
		}
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		got := AsError(errors.New("boom"))
		if got.Kind != KindInternal {
			t.Errorf("kind = %q, want internal", got.Kind)
		}
		if got.Message != "boom" {
			t.Errorf("message = %q", got.Message)
		}
	})
}

func TestExecuteResponseJSON(t *testing.T) {
	resp := ExecuteResponse{
		Success:   false,
		SessionID: "s1",
		Error:     Errorf(KindExecution, "exit 1"),
		State:     SessionState{ConversationLength: 2, ExecutionCount: 1},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["output"]; ok {
		t.Error("empty output should be omitted")
	}
	errObj, ok := decoded["error"].(map[string]any)
	if !ok {
		t.Fatal("missing error object")
	}
	if errObj["kind"] != "execution" {
		t.Errorf("error.kind = %v", errObj["kind"])
	}
}
