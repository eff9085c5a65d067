package code

import "testing"

func TestEveryCodeHasMessageAndStatus(t *testing.T) {
	for c := range codeMessageMap {
		if _, ok := codeStatusMap[c]; !ok {
			t.Fatalf("code %d has a message but no HTTP status", c)
		}
	}
	for c := range codeStatusMap {
		if _, ok := codeMessageMap[c]; !ok {
			t.Fatalf("code %d has an HTTP status but no message", c)
		}
	}
}

func TestAccessRequestConflictsMapTo409(t *testing.T) {
	if GetStatus(ErrAccessRequestNotPending) != StatusConflict {
		t.Fatalf("expected 409 for not-pending request")
	}
	if GetStatus(ErrAccessRequestDuplicate) != StatusConflict {
		t.Fatalf("expected 409 for duplicate request")
	}
}

func TestUnknownCodeFallsBack(t *testing.T) {
	if GetStatus(999999) != StatusInternalServerError {
		t.Fatalf("expected 500 for unknown code")
	}
	if GetMessage(999999) != "未知错误" {
		t.Fatalf("unexpected message for unknown code")
	}
}
