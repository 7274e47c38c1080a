package csvprog

import (
	"strings"
	"testing"

	"github.com/fanuc-rmi/rmigateway/internal/wire"
)

func TestParseMinimalValidCSV(t *testing.T) {
	csv := "x,y,z,speed\n1,2,3,100\n4,5,6,150\n"
	res := Parse(strings.NewReader(csv))
	if len(res.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", res.Diagnostics)
	}
	if len(res.Waypoints) != 2 {
		t.Fatalf("expected 2 waypoints, got %d", len(res.Waypoints))
	}
	if res.Waypoints[0].X != 1 || res.Waypoints[0].Y != 2 || res.Waypoints[0].Z != 3 || res.Waypoints[0].Speed != 100 {
		t.Fatalf("unexpected first waypoint: %+v", res.Waypoints[0])
	}
}

func TestParseMissingRequiredColumnFails(t *testing.T) {
	csv := "x,y,speed\n1,2,100\n"
	res := Parse(strings.NewReader(csv))
	if len(res.Diagnostics) == 0 {
		t.Fatalf("expected diagnostics for missing z column")
	}
	found := false
	for _, d := range res.Diagnostics {
		if d.Column == "z" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a diagnostic naming column z, got %+v", res.Diagnostics)
	}
	if res.Waypoints != nil {
		t.Fatalf("expected no waypoints on validation failure, got %+v", res.Waypoints)
	}
}

func TestParseOptionalColumnMustBeAllOrNone(t *testing.T) {
	csv := "x,y,z,speed,w\n1,2,3,100,45\n4,5,6,150,\n"
	res := Parse(strings.NewReader(csv))
	if len(res.Diagnostics) == 0 {
		t.Fatalf("expected diagnostics for partially-filled optional column")
	}
	found := false
	for _, d := range res.Diagnostics {
		if d.Column == "w" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a diagnostic naming column w, got %+v", res.Diagnostics)
	}
}

func TestParseOptionalColumnFilledOnAllRowsSucceeds(t *testing.T) {
	csv := "x,y,z,speed,w\n1,2,3,100,45\n4,5,6,150,90\n"
	res := Parse(strings.NewReader(csv))
	if len(res.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", res.Diagnostics)
	}
	if res.Waypoints[0].W != 45 || res.Waypoints[1].W != 90 {
		t.Fatalf("unexpected W values: %+v", res.Waypoints)
	}
}

func TestParseInvalidNumberProducesDiagnostic(t *testing.T) {
	csv := "x,y,z,speed\nabc,2,3,100\n"
	res := Parse(strings.NewReader(csv))
	if len(res.Diagnostics) == 0 {
		t.Fatalf("expected a diagnostic for non-numeric x")
	}
	if res.Diagnostics[0].Column != "x" {
		t.Fatalf("expected diagnostic for column x, got %+v", res.Diagnostics[0])
	}
}

func TestParseSpeedMustBePositive(t *testing.T) {
	csv := "x,y,z,speed\n1,2,3,0\n"
	res := Parse(strings.NewReader(csv))
	if len(res.Diagnostics) == 0 {
		t.Fatalf("expected a diagnostic for zero speed")
	}
}

func TestParseAllOrNothingAggregation(t *testing.T) {
	csv := "x,y,z,speed\n1,2,3,100\nbad,5,6,150\n"
	res := Parse(strings.NewReader(csv))
	if len(res.Diagnostics) == 0 {
		t.Fatalf("expected diagnostics for second row's bad value")
	}
	if res.Waypoints != nil {
		t.Fatalf("expected waypoints to be nil when any row fails, even if other rows were valid")
	}
}

func TestNormalizeTermTypeFine(t *testing.T) {
	term, value, err := normalizeTermType("FINE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if term != wire.TermFine || value != 0 {
		t.Fatalf("expected FINE/0, got %v/%d", term, value)
	}
}

func TestNormalizeTermTypeBareCNT(t *testing.T) {
	term, value, err := normalizeTermType("CNT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if term != wire.TermCNT || value != 100 {
		t.Fatalf("expected CNT/100, got %v/%d", term, value)
	}
}

func TestNormalizeTermTypeCNTWithValue(t *testing.T) {
	term, value, err := normalizeTermType("CNT50")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if term != wire.TermCNT || value != 50 {
		t.Fatalf("expected CNT/50, got %v/%d", term, value)
	}
}

func TestNormalizeTermTypeInvalid(t *testing.T) {
	if _, _, err := normalizeTermType("BOGUS"); err == nil {
		t.Fatalf("expected an error for an unrecognized term type")
	}
}

func TestParseTermTypeColumn(t *testing.T) {
	csv := "x,y,z,speed,term_type\n1,2,3,100,CNT50\n4,5,6,150,FINE\n"
	res := Parse(strings.NewReader(csv))
	if len(res.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", res.Diagnostics)
	}
	if *res.Waypoints[0].TermType != wire.TermCNT || *res.Waypoints[0].TermValue != 50 {
		t.Fatalf("unexpected first row term: %v/%d", *res.Waypoints[0].TermType, *res.Waypoints[0].TermValue)
	}
	if *res.Waypoints[1].TermType != wire.TermFine {
		t.Fatalf("unexpected second row term: %v", *res.Waypoints[1].TermType)
	}
}

func TestParseDiagnosticStringIncludesLineAndColumn(t *testing.T) {
	d := Diagnostic{Line: 3, Column: "speed", Message: "must be > 0"}
	s := d.String()
	if !strings.Contains(s, "line 3") || !strings.Contains(s, `"speed"`) {
		t.Fatalf("unexpected diagnostic string: %q", s)
	}
}
