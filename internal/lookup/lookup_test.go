package lookup

import "testing"

func TestFind(t *testing.T) {
	table := New("debug", "login", "password", "serial", "webservice")

	tests := []struct {
		input     string
		wantIndex int
		wantFound bool
	}{
		{"debug", 0, true},
		{"login", 1, true},
		{"password", 2, true},
		{"serial", 3, true},
		{"webservice", 4, true},
		{"Debug", 0, false},
		{"log", 1, false},
		{"loginx", 2, false},
		{"", 0, false},
		{"zzz", 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			idx, found := table.Find(tt.input)
			if found != tt.wantFound {
				t.Fatalf("Find(%q) found = %v, want %v", tt.input, found, tt.wantFound)
			}
			if found && idx != tt.wantIndex {
				t.Errorf("Find(%q) = %d, want %d", tt.input, idx, tt.wantIndex)
			}
		})
	}
}

func TestFindEmptyTable(t *testing.T) {
	if _, found := New().Find("anything"); found {
		t.Error("empty table should never match")
	}
}

func TestNewPanicsOnUnsorted(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New() should panic on an unsorted table")
		}
	}()
	New("serial", "debug")
}

func TestNewPanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New() should panic on a duplicated word")
		}
	}()
	New("debug", "debug")
}

func TestWord(t *testing.T) {
	table := New("a", "b")
	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}
	if table.Word(1) != "b" {
		t.Errorf("Word(1) = %q, want b", table.Word(1))
	}
}
