package repo

import "testing"

func TestParseTaskStatus(t *testing.T) {
	tests := []struct {
		input string
		want  TaskStatus
		ok    bool
	}{
		{"concluída", StatusDone, true},
		{" CONCLUÍDA ", StatusDone, true},
		{"done", StatusDone, true},
		{"concluida", StatusDone, true},
		{"Em andamento", StatusInProgress, true},
		{"in-progress", StatusInProgress, true},
		{"pending", StatusPending, true},
		{"blocked", StatusBlocked, true},
		{"arquivada", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseTaskStatus(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("ParseTaskStatus(%q): expected %q/%v got %q/%v", tt.input, tt.want, tt.ok, got, ok)
		}
		if ok && !got.Valid() {
			t.Fatalf("expected canonical status for %q", tt.input)
		}
	}

	if TaskStatus("done").Valid() {
		t.Fatalf("alias must not be stored as canonical status")
	}
}

func TestNormalizeEmails(t *testing.T) {
	got := NormalizeEmails([]string{" Ana@X.com", "ana@x.com", "", "bia@x.com "})
	if len(got) != 2 || got[0] != "ana@x.com" || got[1] != "bia@x.com" {
		t.Fatalf("unexpected emails %v", got)
	}
	if NormalizeEmails(nil) == nil {
		t.Fatalf("expected non-nil slice")
	}
}
