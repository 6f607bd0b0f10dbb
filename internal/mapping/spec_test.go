package mapping

import "testing"

func TestSpec_Eval_Literal(t *testing.T) {
	s := Spec{Kind: KindLiteral, Value: "simple"}

	got, err := s.Eval(SourceRow{"Type": "variable"})
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if got != "simple" {
		t.Errorf("Eval() = %q, want %q", got, "simple")
	}
}

func TestSpec_Eval_ColumnRef(t *testing.T) {
	s := Spec{Kind: KindColumnRef, Column: "Name"}

	got, err := s.Eval(SourceRow{"Name": "Blue Shirt"})
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if got != "Blue Shirt" {
		t.Errorf("Eval() = %q, want %q", got, "Blue Shirt")
	}
}

func TestSpec_Eval_ColumnRef_MissingIsEmpty(t *testing.T) {
	s := Spec{Kind: KindColumnRef, Column: "Missing"}

	got, err := s.Eval(SourceRow{"Name": "Blue Shirt"})
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if got != "" {
		t.Errorf("Eval() = %q, want empty string for missing column", got)
	}
}

func TestSpec_Eval_ColumnList(t *testing.T) {
	s := Spec{Kind: KindColumnList, Columns: []string{"Brand", "Model", "Color"}}

	tests := []struct {
		name string
		row  SourceRow
		want string
	}{
		{
			name: "all present, values trimmed",
			row:  SourceRow{"Brand": " Acme ", "Model": "X1", "Color": "Red"},
			want: "Acme X1 Red",
		},
		{
			name: "missing column skipped, not padded",
			row:  SourceRow{"Brand": "Acme", "Color": "Red"},
			want: "Acme Red",
		},
		{
			name: "all missing",
			row:  SourceRow{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Eval(tt.row)
			if err != nil {
				t.Fatalf("Eval() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSpec_Eval_ConcatMatchesColumnList(t *testing.T) {
	// {"concat": ["A","B"], "sep": " "} must behave exactly like ["A","B"].
	row := SourceRow{"A": "first", "B": "second"}

	list := Spec{Kind: KindColumnList, Columns: []string{"A", "B"}}
	concat := Spec{Kind: KindConcat, Columns: []string{"A", "B"}, Sep: " "}

	lv, err := list.Eval(row)
	if err != nil {
		t.Fatalf("list Eval() error = %v", err)
	}
	cv, err := concat.Eval(row)
	if err != nil {
		t.Fatalf("concat Eval() error = %v", err)
	}
	if lv != cv {
		t.Errorf("concat with space sep = %q, column list = %q, want equal", cv, lv)
	}
}

func TestSpec_Eval_ConcatCustomSep(t *testing.T) {
	s := Spec{Kind: KindConcat, Columns: []string{"A", "B"}, Sep: " - "}

	got, err := s.Eval(SourceRow{"A": "first", "B": "second"})
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if got != "first - second" {
		t.Errorf("Eval() = %q, want %q", got, "first - second")
	}
}

func TestTable_Referenced(t *testing.T) {
	table := &Table{}
	if err := table.add("Name", Spec{Kind: KindColumnRef, Column: "Product"}); err != nil {
		t.Fatal(err)
	}
	if err := table.add("Desc", Spec{Kind: KindConcat, Columns: []string{"A", "B"}, Sep: " "}); err != nil {
		t.Fatal(err)
	}
	if err := table.add("Type", Spec{Kind: KindLiteral, Value: "simple"}); err != nil {
		t.Fatal(err)
	}

	refs := table.Referenced()
	for _, want := range []string{"Product", "A", "B"} {
		if _, ok := refs[want]; !ok {
			t.Errorf("Referenced() missing %q", want)
		}
	}
	if len(refs) != 3 {
		t.Errorf("Referenced() has %d entries, want 3 (literals reference nothing)", len(refs))
	}
}

func TestTable_DuplicateColumnRejected(t *testing.T) {
	table := &Table{}
	if err := table.add("Name", Spec{Kind: KindColumnRef, Column: "A"}); err != nil {
		t.Fatal(err)
	}
	if err := table.add("Name", Spec{Kind: KindColumnRef, Column: "B"}); err == nil {
		t.Error("add() duplicate column: error = nil, want error")
	}
}
