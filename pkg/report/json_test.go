package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

func sampleReport() *RunReport {
	s := step("add_to_cart", core.StatusFailed, core.ErrCategoryAction)
	s.Detail = "action_failed: click registered; cart state not persisted"
	s.Data = map[string]interface{}{"clickRegistered": true, "cartPersisted": false}
	s.Attachments = []core.Attachment{core.NewScreenshotAttachment("artifacts/en_p/02_add_to_cart.png", []byte("\x89PNG"))}
	f := flowOf("en", "p", step("homepage", core.StatusPassed, core.ErrCategoryNone), s)
	f.PersonaName = "Quick Buyer"
	return Aggregate([]*core.FlowResult{f}, healthy(), Options{RunID: "run-1"})
}

func TestWriteReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	r := sampleReport()

	if err := WriteJSON(path, r); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	got, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}

	if got.RunID != "run-1" || got.Verdict != VerdictFailed {
		t.Errorf("RunID/Verdict = %s/%s", got.RunID, got.Verdict)
	}
	if len(got.Flows) != 1 || len(got.Flows[0].Steps) != 2 {
		t.Fatalf("flows not preserved: %+v", got.Flows)
	}
	if st := got.Flows[0].Steps[1]; st.Status != core.StatusFailed || st.Category != core.ErrCategoryAction {
		t.Errorf("step = %+v", st)
	}

	// No temp files left behind
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want 1", len(entries))
	}
}

func TestWriteJSON_StepFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := WriteJSON(path, sampleReport()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"stepName"`, `"timestampStart"`, `"timestampEnd"`, `"errorCategory"`, `"status": "failed"`} {
		if !bytes.Contains(data, []byte(field)) {
			t.Errorf("report.json missing %s", field)
		}
	}
}

func TestReadJSON_Errors(t *testing.T) {
	if _, err := ReadJSON(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadJSON(bad); err == nil || !strings.Contains(err.Error(), "parse report") {
		t.Errorf("ReadJSON() error = %v", err)
	}
}
