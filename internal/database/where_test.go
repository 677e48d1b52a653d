package database

import (
	"testing"
)

// ============================================================================
// WhereBuilder Tests
// ============================================================================

func TestNewWhereBuilder(t *testing.T) {
	wb := NewWhereBuilder()

	if wb == nil {
		t.Fatal("NewWhereBuilder returned nil")
	}
	if wb.argIndex != 1 {
		t.Errorf("expected argIndex to be 1, got %d", wb.argIndex)
	}
	if len(wb.conditions) != 0 {
		t.Errorf("expected empty conditions, got %d", len(wb.conditions))
	}
	if len(wb.args) != 0 {
		t.Errorf("expected empty args, got %d", len(wb.args))
	}
}

func TestWhereBuilder_Build_Empty(t *testing.T) {
	wb := NewWhereBuilder()
	whereClause, args := wb.Build()

	if whereClause != "" {
		t.Errorf("expected empty string for no conditions, got %q", whereClause)
	}
	if args != nil {
		t.Errorf("expected nil args for no conditions, got %v", args)
	}
}

func TestWhereBuilder_Add_MultipleConditions(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Add("g.id", int64(7))
	wb.Add("g.pricecharting_id", "pc-123")

	whereClause, args := wb.Build()

	expectedClause := " WHERE g.id = $1 AND g.pricecharting_id = $2"
	if whereClause != expectedClause {
		t.Errorf("expected %q, got %q", expectedClause, whereClause)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
	if args[0] != int64(7) || args[1] != "pc-123" {
		t.Errorf("expected args [7, 'pc-123'], got %v", args)
	}
}

func TestWhereBuilder_Add_EmptyValue_Skipped(t *testing.T) {
	wb := NewWhereBuilder()
	var nilID *int64
	wb.Add("g.id", int64(0))
	wb.Add("g.pricecharting_url", "")
	wb.Add("g.console_id", nilID)
	wb.Add("g.pricecharting_id", "pc-1")

	whereClause, args := wb.Build()

	expectedClause := " WHERE g.pricecharting_id = $1"
	if whereClause != expectedClause {
		t.Errorf("expected %q, got %q", expectedClause, whereClause)
	}
	if len(args) != 1 {
		t.Fatalf("expected 1 arg, got %d", len(args))
	}
}

func TestWhereBuilder_Add_PointerDereferenced(t *testing.T) {
	wb := NewWhereBuilder()
	id := int64(3)
	wb.Add("g.console_id", &id)

	_, args := wb.Build()
	if len(args) != 1 || args[0] != int64(3) {
		t.Errorf("expected args [3], got %v", args)
	}
}

func TestWhereBuilder_AddFold(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddFold("g.title", "Halo 3")
	wb.AddFold("g.genre", "")

	whereClause, args := wb.Build()

	expectedClause := " WHERE lower(g.title) = lower($1)"
	if whereClause != expectedClause {
		t.Errorf("expected %q, got %q", expectedClause, whereClause)
	}
	if len(args) != 1 || args[0] != "Halo 3" {
		t.Errorf("expected args ['Halo 3'], got %v", args)
	}
}

func TestWhereBuilder_AddNullable(t *testing.T) {
	wb := NewWhereBuilder()
	id := int64(9)
	wb.AddNullable("g.console_id", nil)
	wb.AddNullable("g.region_id", &id)

	whereClause, args := wb.Build()

	expectedClause := " WHERE g.console_id IS NULL AND g.region_id = $1"
	if whereClause != expectedClause {
		t.Errorf("expected %q, got %q", expectedClause, whereClause)
	}
	if len(args) != 1 || args[0] != int64(9) {
		t.Errorf("expected args [9], got %v", args)
	}
}

func TestWhereBuilder_NextArgIndex(t *testing.T) {
	wb := NewWhereBuilder()

	if wb.NextArgIndex() != 1 {
		t.Errorf("expected initial NextArgIndex to be 1, got %d", wb.NextArgIndex())
	}

	wb.Add("g.id", int64(1))
	if wb.NextArgIndex() != 2 {
		t.Errorf("expected NextArgIndex after 1 add to be 2, got %d", wb.NextArgIndex())
	}

	wb.AddNullable("g.console_id", nil)
	if wb.NextArgIndex() != 2 {
		t.Errorf("expected IS NULL to take no placeholder, got %d", wb.NextArgIndex())
	}

	wb.AddSearch("mario", "title", "developer")
	if wb.NextArgIndex() != 3 {
		t.Errorf("expected NextArgIndex after search to be 3, got %d", wb.NextArgIndex())
	}
}

func TestWhereBuilder_AddSearch(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		columns       []string
		wantClause    string
		wantArgsCount int
		wantArg       string
	}{
		{
			name:          "empty query adds nothing",
			query:         "   ",
			columns:       []string{"title"},
			wantClause:    "",
			wantArgsCount: 0,
		},
		{
			name:          "no columns adds nothing",
			query:         "zelda",
			wantClause:    "",
			wantArgsCount: 0,
		},
		{
			name:          "single column",
			query:         "zelda",
			columns:       []string{"title"},
			wantClause:    ` WHERE ("title" ILIKE $1)`,
			wantArgsCount: 1,
			wantArg:       "%zelda%",
		},
		{
			name:          "multiple columns share one arg",
			query:         "nintendo",
			columns:       []string{"developer", "publisher"},
			wantClause:    ` WHERE ("developer" ILIKE $1 OR "publisher" ILIKE $1)`,
			wantArgsCount: 1,
			wantArg:       "%nintendo%",
		},
		{
			name:          "wildcards escaped",
			query:         "100%_done",
			columns:       []string{"title"},
			wantClause:    ` WHERE ("title" ILIKE $1)`,
			wantArgsCount: 1,
			wantArg:       `%100\%\_done%`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			wb.AddSearch(tt.query, tt.columns...)

			whereClause, args := wb.Build()
			if whereClause != tt.wantClause {
				t.Errorf("expected %q, got %q", tt.wantClause, whereClause)
			}
			if len(args) != tt.wantArgsCount {
				t.Fatalf("expected %d args, got %d", tt.wantArgsCount, len(args))
			}
			if tt.wantArgsCount > 0 && args[0] != tt.wantArg {
				t.Errorf("expected arg %q, got %v", tt.wantArg, args[0])
			}
		})
	}
}
