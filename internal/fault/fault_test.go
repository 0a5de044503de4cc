package fault

import (
	"errors"
	"testing"
)

func TestUnknownParameterIsConfiguration(t *testing.T) {
	if !errors.Is(ErrUnknownParameter, ErrConfiguration) {
		t.Fatal("expected unknown parameter to be a configuration error")
	}
}

func TestBackendWrapping(t *testing.T) {
	if Backend(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
	cause := errors.New("cell count mismatch")
	err := Backend(cause)
	if !errors.Is(err, ErrBackend) || !errors.Is(err, cause) {
		t.Fatalf("expected wrapped backend error, got: %v", err)
	}
	if again := Backend(err); again != err {
		t.Fatalf("expected already-wrapped error unchanged, got: %v", again)
	}
}

func TestFormattedHelpers(t *testing.T) {
	if err := Configuration("bad %s", "value"); !errors.Is(err, ErrConfiguration) || err.Error() != "configuration error: bad value" {
		t.Fatalf("unexpected configuration error: %v", err)
	}
	if err := Precondition("not initialized"); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("unexpected precondition error: %v", err)
	}
}
