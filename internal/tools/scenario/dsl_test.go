package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestLoadScenarioRecordsSteps(t *testing.T) {
	path := writeScript(t, "steps.lua", `
local scn = Scenario.new("table talk")
scn:create({as = "ada", title = "Harbor"})
scn:action("set_location", {as = "ada", location = "Lighthouse"})
scn:expect_error("start", {as = "bea", code = "PERMISSION_VIOLATION"})
scn:expect({ready_count = 2, ten_flag = false, topics = {"who", "why"}})
scn:turns()
return scn
`)
	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if scenario.Name != "table talk" {
		t.Fatalf("expected scenario name, got %q", scenario.Name)
	}
	kinds := make([]string, 0, len(scenario.Steps))
	for _, step := range scenario.Steps {
		kinds = append(kinds, step.Kind)
	}
	if got := strings.Join(kinds, ","); got != "create,action,expect_error,expect,turns" {
		t.Fatalf("unexpected steps %s", got)
	}

	action := scenario.Steps[1].Args
	if action["action"] != "set_location" || action["location"] != "Lighthouse" || action["as"] != "ada" {
		t.Fatalf("unexpected action args %v", action)
	}
	expect := scenario.Steps[3].Args
	if expect["ready_count"] != 2 {
		t.Fatalf("expected integer normalization, got %#v", expect["ready_count"])
	}
	if expect["ten_flag"] != false {
		t.Fatalf("expected boolean, got %#v", expect["ten_flag"])
	}
	topics, ok := expect["topics"].([]any)
	if !ok || len(topics) != 2 || topics[1] != "why" {
		t.Fatalf("expected array conversion, got %#v", expect["topics"])
	}
	if len(scenario.Steps[4].Args) != 0 {
		t.Fatalf("expected empty args for bare turns, got %v", scenario.Steps[4].Args)
	}
}

func TestLoadScenarioDefaultsNameToFile(t *testing.T) {
	path := writeScript(t, "quiet_harbor.lua", `return Scenario.new()`)
	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if scenario.Name != "quiet_harbor" {
		t.Fatalf("expected name from file, got %q", scenario.Name)
	}
}

func TestLoadScenarioRequiresScenarioReturn(t *testing.T) {
	path := writeScript(t, "bad.lua", `return 42`)
	if _, err := LoadScenarioFromFile(path); err == nil || !strings.Contains(err.Error(), "must return Scenario") {
		t.Fatalf("expected return error, got %v", err)
	}
}

func TestLoadScenarioReportsLuaErrors(t *testing.T) {
	path := writeScript(t, "broken.lua", `local scn = Scenario.new() scn:action() return scn`)
	if _, err := LoadScenarioFromFile(path); err == nil || !strings.Contains(err.Error(), "run lua") {
		t.Fatalf("expected run error, got %v", err)
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	if _, err := LoadScenarioFromFile(filepath.Join(t.TempDir(), "missing.lua")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
